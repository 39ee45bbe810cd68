package filtering

import (
	"context"

	"github.com/spigell/candidate-matcher/internal/enrichment"
	"github.com/spigell/candidate-matcher/internal/ranking"
)

// DefaultSteps returns a fresh skills and experience pipeline.
func DefaultSteps() []Filter {
	return []Filter{NewSkills(), NewExperience()}
}

// Keyword evaluates the job's hard requirements against every candidate. It
// does not rank: the result follows the input order.
func Keyword(job enrichment.EnrichedJob, candidates []enrichment.EnrichedCandidate, threshold float64) []Match {
	cfg := &Config{Threshold: ranking.Clamp01(threshold)}
	// The default steps never fail once the threshold is in range.
	matches, _ := Run(context.Background(), cfg, Deps{}, DefaultSteps(), job, candidates)
	return matches
}
