package filtering

import (
	"context"
	"fmt"

	"github.com/spigell/candidate-matcher/internal/enrichment"
)

const ExperienceFilterName = "experience"

type experienceFilter struct {
	disabled bool
	reason   string
}

// NewExperience creates the step rejecting candidates with fewer years of
// experience than the job requires.
func NewExperience() Filter {
	return &experienceFilter{}
}

func (f *experienceFilter) Name() string { return ExperienceFilterName }

func (f *experienceFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *experienceFilter) IsEnabled() bool { return !f.disabled }

func (f *experienceFilter) Validate(*Config) error { return nil }

func (f *experienceFilter) Apply(_ context.Context, _ Deps, job enrichment.EnrichedJob, matches []Match) ([]Match, Step, error) {
	initial := passing(matches)

	for i := range matches {
		if !matches[i].Passed {
			continue
		}
		if years := matches[i].Candidate.YearsExperience; years < job.MinExperienceYears {
			matches[i].Passed = false
			matches[i].Reason = fmt.Sprintf("%.1f years of experience, %.1f required", years, job.MinExperienceYears)
		}
	}

	left := passing(matches)
	return matches, Step{Initial: initial, Dropped: initial - left, Left: left}, nil
}

func (f *experienceFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
