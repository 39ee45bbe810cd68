package gemini

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/candidate-matcher/internal/ai"
	"github.com/spigell/candidate-matcher/internal/records"
)

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
	systems  []string
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeGenerator) Model() string { return "fake-model" }

func newTestExtractor(gen *fakeGenerator) *Extractor {
	e := NewExtractor(gen, zap.NewNop(), 0)
	e.now = func() time.Time { return time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

var sampleCandidate = records.RawCandidate{
	ID:        "7",
	FirstName: "Ada",
	Email:     "ada@example.com",
	Skills:    []string{"Python", "AWS"},
	Experiences: []records.Experience{
		{Company: "Acme", Role: "Backend Engineer", StartDate: "2019-08", Description: "Built Flask services on AWS"},
	},
}

func TestExtractCandidate(t *testing.T) {
	gen := &fakeGenerator{response: "```json\n" + `{
		"total_years_of_experience": "6.0",
		"seniority_level": "Senior",
		"education_level": "Master's",
		"skill_keywords": ["Flask", "python", "Docker"],
		"recent_job_title": "Backend Engineer",
		"recent_company": "Acme",
		"candidate_summary": "  Senior backend engineer.  "
	}` + "\n```"}

	features, err := newTestExtractor(gen).ExtractCandidate(context.Background(), sampleCandidate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.Join(features.Skills, ","); got != "aws,docker,flask,python" {
		t.Fatalf("unexpected skills: %s", got)
	}
	if features.Seniority != ai.SenioritySenior {
		t.Fatalf("unexpected seniority: %s", features.Seniority)
	}
	if features.YearsExperience != 6 {
		t.Fatalf("expected 6 years, got %v", features.YearsExperience)
	}
	if features.Summary != "Senior backend engineer." {
		t.Fatalf("unexpected summary: %q", features.Summary)
	}
	if features.EducationLevel != "Master's" {
		t.Fatalf("unexpected education level: %q", features.EducationLevel)
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("expected one call, got %d", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "Built Flask services") {
		t.Fatalf("prompt must carry the experience description")
	}
	if strings.Contains(gen.prompts[0], "ada@example.com") {
		t.Fatalf("prompt must not carry contact details")
	}
	if !strings.Contains(gen.prompts[0], "August 1, 2025") {
		t.Fatalf("prompt must carry today's date")
	}
	if strings.TrimSpace(gen.systems[0]) == "" {
		t.Fatalf("expected system prompt")
	}
}

func TestExtractCandidateFallsBackToLocalFacts(t *testing.T) {
	gen := &fakeGenerator{response: `{
		"total_years_of_experience": null,
		"seniority_level": "Mid-level",
		"skill_keywords": [],
		"candidate_summary": ""
	}`}

	features, err := newTestExtractor(gen).ExtractCandidate(context.Background(), sampleCandidate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if features.YearsExperience < 5.9 || features.YearsExperience > 6.1 {
		t.Fatalf("expected locally computed years near 6, got %v", features.YearsExperience)
	}
	if features.RecentTitle != "Backend Engineer" || features.RecentCompany != "Acme" {
		t.Fatalf("expected recent role from raw record, got %q at %q", features.RecentTitle, features.RecentCompany)
	}
	if got := strings.Join(features.Skills, ","); got != "aws,python" {
		t.Fatalf("expected raw skills to survive, got %s", got)
	}
}

func TestExtractCandidateYearsFormats(t *testing.T) {
	tests := []struct {
		name  string
		years string
		min   float64
		max   float64
	}{
		{name: "empty string falls back to local", years: `""`, min: 5.9, max: 6.1},
		{name: "not applicable falls back to local", years: `"N/A"`, min: 5.9, max: 6.1},
		{name: "plus suffix", years: `"6+"`, min: 6, max: 6},
		{name: "with unit", years: `"3.5 years"`, min: 3.5, max: 3.5},
		{name: "number", years: `4`, min: 4, max: 4},
		{name: "negative falls back to local", years: `-1`, min: 5.9, max: 6.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{response: `{
				"total_years_of_experience": ` + tt.years + `,
				"seniority_level": "Senior",
				"skill_keywords": ["python"],
				"candidate_summary": "Backend engineer."
			}`}

			features, err := newTestExtractor(gen).ExtractCandidate(context.Background(), sampleCandidate)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if features.YearsExperience < tt.min || features.YearsExperience > tt.max {
				t.Fatalf("expected years in [%v, %v], got %v", tt.min, tt.max, features.YearsExperience)
			}
		})
	}
}

func TestExtractCandidateDegradedWithoutContent(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	gen := &fakeGenerator{}
	e := NewExtractor(gen, zap.New(core), 0)

	features, err := e.ExtractCandidate(context.Background(), records.RawCandidate{ID: "empty"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatalf("expected no model call for empty profile")
	}
	if len(features.Skills) != 0 || features.Seniority != ai.SeniorityUnknown {
		t.Fatalf("expected empty features, got %+v", features)
	}
	if observed.FilterMessageSnippet("degraded extraction").Len() != 1 {
		t.Fatalf("expected degraded extraction warning")
	}
}

func TestExtractCandidateErrors(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{name: "service failure", gen: &fakeGenerator{err: context.DeadlineExceeded}},
		{name: "not json", gen: &fakeGenerator{response: "I cannot help with that"}},
		{name: "schema violation", gen: &fakeGenerator{response: `{"seniority_level": "Senior", "skill_keywords": "python", "candidate_summary": "x"}`}},
		{name: "missing required field", gen: &fakeGenerator{response: `{"seniority_level": "Senior"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestExtractor(tt.gen).ExtractCandidate(context.Background(), sampleCandidate)
			if !errors.Is(err, ai.ErrExtraction) {
				t.Fatalf("expected extraction error, got %v", err)
			}
			var extErr *ai.ExtractionError
			if !errors.As(err, &extErr) || extErr.RecordID != "7" {
				t.Fatalf("expected extraction error for record 7, got %v", err)
			}
		})
	}
}

func TestExtractJob(t *testing.T) {
	gen := &fakeGenerator{response: `{
		"extracted_skills": ["Django", "PostgreSQL"],
		"seniority_level": "Senior",
		"required_experience_years": 5,
		"location_normalized": "Remote (Europe)",
		"job_summary_for_embedding": "Senior Python developer building Django APIs."
	}`}

	job := records.RawJob{
		ID:             "j-1",
		JobTitle:       "Senior Python Developer",
		JobDescription: "5+ years building Django services",
		RequiredSkills: []string{"Python", "AWS"},
	}

	features, err := newTestExtractor(gen).ExtractJob(context.Background(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.Join(features.Skills, ","); got != "aws,django,postgresql,python" {
		t.Fatalf("expected raw and extracted skills, got %s", got)
	}
	if features.MinExperienceYears != 5 {
		t.Fatalf("expected 5 years, got %v", features.MinExperienceYears)
	}
	if features.Location != "Remote (Europe)" {
		t.Fatalf("unexpected location %q", features.Location)
	}
}

func TestExtractJobDefaultsExperienceFromSeniority(t *testing.T) {
	gen := &fakeGenerator{response: `{
		"extracted_skills": [],
		"seniority_level": "Lead",
		"job_summary_for_embedding": "Lead engineer."
	}`}

	features, err := newTestExtractor(gen).ExtractJob(context.Background(), records.RawJob{ID: "j-2", JobTitle: "Lead", JobDescription: "Lead a team"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if features.MinExperienceYears != 8 {
		t.Fatalf("expected 8 years for lead, got %v", features.MinExperienceYears)
	}
}

func TestExtractJobYearsFormats(t *testing.T) {
	tests := map[string]float64{
		`""`:      5,
		`"N/A"`:   5,
		`"3+"`:    3,
		`null`:    5,
		`"7 yrs"`: 7,
	}

	for years, expect := range tests {
		gen := &fakeGenerator{response: `{
			"extracted_skills": ["python"],
			"seniority_level": "Senior",
			"required_experience_years": ` + years + `,
			"job_summary_for_embedding": "Senior Python developer."
		}`}

		job := records.RawJob{ID: "j-4", JobTitle: "Senior Python Developer", JobDescription: "Python services"}
		features, err := newTestExtractor(gen).ExtractJob(context.Background(), job)
		if err != nil {
			t.Fatalf("required_experience_years=%s: unexpected error: %v", years, err)
		}
		if features.MinExperienceYears != expect {
			t.Fatalf("required_experience_years=%s: expected %v, got %v", years, expect, features.MinExperienceYears)
		}
	}
}

func TestParseYears(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{in: 6.0, want: 6, wantOK: true},
		{in: " 10+ ", want: 10, wantOK: true},
		{in: "0", want: 0, wantOK: true},
		{in: "", wantOK: false},
		{in: "unknown", wantOK: false},
		{in: nil, wantOK: false},
		{in: math.NaN(), wantOK: false},
		{in: []any{1.0}, wantOK: false},
	}

	for _, tt := range tests {
		got, ok := parseYears(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Fatalf("parseYears(%#v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestExtractJobDegradedWithoutContent(t *testing.T) {
	gen := &fakeGenerator{}
	features, err := newTestExtractor(gen).ExtractJob(context.Background(), records.RawJob{ID: "j-3", JobTitle: "Engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gen.prompts) != 0 || len(features.Skills) != 0 {
		t.Fatalf("expected no call and empty skills")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		`  {"a":1}  `:             `{"a":1}`,
	}
	for input, expect := range tests {
		if got := extractJSON(input); got != expect {
			t.Fatalf("extractJSON(%q) = %q, want %q", input, got, expect)
		}
	}
}
