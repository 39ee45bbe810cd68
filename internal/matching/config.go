package matching

import (
	"fmt"
	"math"

	"github.com/spigell/candidate-matcher/internal/filtering"
)

const (
	DefaultTopK           = 100
	DefaultMaxTopK        = 500
	DefaultMaxConcurrency = 10
)

// Config tunes the hybrid search.
type Config struct {
	KeywordThreshold float64
	KeywordWeight    float64
	VectorWeight     float64
	DefaultTopK      int
	MaxTopK          int
	MaxConcurrency   int
	// ExperienceFilter enables the minimal years of experience requirement.
	ExperienceFilter bool
}

func DefaultConfig() Config {
	return Config{
		KeywordThreshold: filtering.DefaultThreshold,
		KeywordWeight:    0.5,
		VectorWeight:     0.5,
		DefaultTopK:      DefaultTopK,
		MaxTopK:          DefaultMaxTopK,
		MaxConcurrency:   DefaultMaxConcurrency,
		ExperienceFilter: true,
	}
}

func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"keyword threshold": c.KeywordThreshold,
		"keyword weight":    c.KeywordWeight,
		"vector weight":     c.VectorWeight,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a finite number, got %v", name, v)
		}
	}
	if c.KeywordThreshold < 0 || c.KeywordThreshold > 1 {
		return fmt.Errorf("keyword threshold must be within [0,1], got %v", c.KeywordThreshold)
	}
	if c.KeywordWeight < 0 || c.VectorWeight < 0 {
		return fmt.Errorf("weights must not be negative, got keyword=%v vector=%v", c.KeywordWeight, c.VectorWeight)
	}
	if c.KeywordWeight+c.VectorWeight == 0 {
		return fmt.Errorf("at least one weight must be positive")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = DefaultTopK
	}
	if c.MaxTopK <= 0 {
		c.MaxTopK = DefaultMaxTopK
	}
	if c.DefaultTopK > c.MaxTopK {
		c.DefaultTopK = c.MaxTopK
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	return c
}

// weights returns the keyword and vector weights scaled to sum to 1.
func (c Config) weights() (float64, float64) {
	sum := c.KeywordWeight + c.VectorWeight
	if sum <= 0 {
		return 0.5, 0.5
	}
	return c.KeywordWeight / sum, c.VectorWeight / sum
}

func (c Config) topK(requested int) int {
	switch {
	case requested <= 0:
		return c.DefaultTopK
	case requested > c.MaxTopK:
		return c.MaxTopK
	default:
		return requested
	}
}
