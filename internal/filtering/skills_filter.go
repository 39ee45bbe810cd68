package filtering

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/spigell/candidate-matcher/internal/ai"
	"github.com/spigell/candidate-matcher/internal/enrichment"
	"github.com/spigell/candidate-matcher/internal/ranking"
)

const (
	SkillsFilterName = "skills"

	// DefaultThreshold is the minimal share of the job's skills a candidate
	// must have.
	DefaultThreshold = 0.6
)

type skillsFilter struct {
	threshold float64
}

// NewSkills creates the skill overlap step. It scores every candidate and
// rejects those whose overlap is below the threshold.
func NewSkills() Filter {
	return &skillsFilter{threshold: DefaultThreshold}
}

func (f *skillsFilter) Name() string { return SkillsFilterName }

// Disable is a no-op: keyword scores always come from this step.
func (f *skillsFilter) Disable(string) {}

func (f *skillsFilter) IsEnabled() bool { return true }

func (f *skillsFilter) Validate(cfg *Config) error {
	if cfg == nil {
		f.threshold = DefaultThreshold
		return nil
	}
	if math.IsNaN(cfg.Threshold) || cfg.Threshold < 0 || cfg.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0,1], got %v", cfg.Threshold)
	}
	f.threshold = cfg.Threshold
	return nil
}

func (f *skillsFilter) Apply(_ context.Context, _ Deps, job enrichment.EnrichedJob, matches []Match) ([]Match, Step, error) {
	initial := passing(matches)
	required := skillSet(job.Skills)

	for i := range matches {
		score := overlap(required, matches[i].Candidate.Skills)
		matches[i].KeywordScore = score
		if matches[i].Passed && score < f.threshold {
			matches[i].Passed = false
			matches[i].Reason = fmt.Sprintf("skill overlap %.2f below %.2f", score, f.threshold)
		}
	}

	left := passing(matches)
	return matches, Step{Initial: initial, Dropped: initial - left, Left: left}, nil
}

func (f *skillsFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{"threshold": strconv.FormatFloat(f.threshold, 'f', 2, 64)},
	}
}

func skillSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		if n := ai.NormalizeSkill(s); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Overlap is the share of jobSkills present in candidateSkills. A job without
// skills is fully covered by anyone.
func Overlap(jobSkills, candidateSkills []string) float64 {
	return overlap(skillSet(jobSkills), candidateSkills)
}

func overlap(required map[string]struct{}, candidateSkills []string) float64 {
	if len(required) == 0 {
		return 1
	}
	have := skillSet(candidateSkills)
	hits := 0
	for s := range required {
		if _, ok := have[s]; ok {
			hits++
		}
	}
	return ranking.Clamp01(float64(hits) / float64(len(required)))
}
