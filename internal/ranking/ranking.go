package ranking

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch marks vectors whose length differs from the configured
// embedding dimension. It is a configuration problem, not a transient one.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

type DimensionMismatchError struct {
	Expected int
	Got      int
	// Source names the model or record that produced the vector.
	Source string
}

func (e *DimensionMismatchError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch, e.Expected, e.Got)
	}
	return fmt.Sprintf("%s: expected %d, got %d (%s)", ErrDimensionMismatch, e.Expected, e.Got, e.Source)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// Cosine returns the cosine similarity of a and b. A zero vector has
// similarity 0 with anything.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Expected: len(a), Got: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, cos)), nil
}

// Score maps a cosine similarity to [0,1].
func Score(cos float64) float64 {
	return Clamp01((cos + 1) / 2)
}

// Clamp01 bounds v to [0,1]; NaN becomes 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Item is anything that can be ranked by its embedding.
type Item interface {
	RankingID() string
	Vector() []float32
}

type Scored[T Item] struct {
	Item        T
	VectorScore float64
}

// Rank scores every item against query, preserving input order. Any
// dimension mismatch fails the whole call.
func Rank[T Item](query []float32, items []T) ([]Scored[T], error) {
	out := make([]Scored[T], 0, len(items))
	for _, item := range items {
		vec := item.Vector()
		if len(vec) != len(query) {
			return nil, &DimensionMismatchError{Expected: len(query), Got: len(vec), Source: item.RankingID()}
		}
		cos, err := Cosine(query, vec)
		if err != nil {
			return nil, err
		}
		out = append(out, Scored[T]{Item: item, VectorScore: Score(cos)})
	}
	return out, nil
}
