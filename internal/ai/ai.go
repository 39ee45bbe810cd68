package ai

import (
	"context"

	"github.com/spigell/candidate-matcher/internal/records"
)

// CandidateFeatures are the attributes derived from a raw candidate profile.
type CandidateFeatures struct {
	Skills          []string  `json:"skills"`
	Seniority       Seniority `json:"seniority"`
	EducationLevel  string    `json:"education_level,omitempty"`
	RecentTitle     string    `json:"recent_title,omitempty"`
	RecentCompany   string    `json:"recent_company,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	YearsExperience float64   `json:"years_experience"`
}

// JobFeatures are the attributes derived from a raw job posting.
type JobFeatures struct {
	Skills                []string  `json:"skills"`
	Seniority             Seniority `json:"seniority"`
	MinExperienceYears    float64   `json:"min_experience_years"`
	NormalizedDescription string    `json:"normalized_description,omitempty"`
	Location              string    `json:"location,omitempty"`
}

// FeatureExtractor derives structured features from raw records, one external
// call per record.
type FeatureExtractor interface {
	ExtractCandidate(ctx context.Context, candidate records.RawCandidate) (CandidateFeatures, error)
	ExtractJob(ctx context.Context, job records.RawJob) (JobFeatures, error)
}

// Embedder turns text into a vector of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}
