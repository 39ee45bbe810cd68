package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/spigell/candidate-matcher/internal/ai"
	"github.com/spigell/candidate-matcher/internal/logger"
	"github.com/spigell/candidate-matcher/internal/records"
	"github.com/spigell/candidate-matcher/internal/utils"
)

//go:embed prompts/system.md
var systemPrompt string

//go:embed prompts/candidate.md
var candidatePromptTemplate string

//go:embed prompts/job.md
var jobPromptTemplate string

const defaultMaxLogLength = 200

type jsonGenerator interface {
	GenerateJSON(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// Extractor implements ai.FeatureExtractor on top of a Gemini model.
type Extractor struct {
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
	now       func() time.Time
}

var _ ai.FeatureExtractor = (*Extractor)(nil)

func NewExtractor(generator jsonGenerator, log *zap.Logger, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Extractor{
		generator: generator,
		logger:    logger.WithCommonFields(log, ProviderName, generator.Model()),
		maxLogLen: maxLogLength,
		now:       time.Now,
	}
}

type candidateResponse struct {
	TotalYears     any      `mapstructure:"total_years_of_experience"`
	SeniorityLevel string   `mapstructure:"seniority_level"`
	EducationLevel string   `mapstructure:"education_level"`
	SkillKeywords  []string `mapstructure:"skill_keywords"`
	RecentTitle    string   `mapstructure:"recent_job_title"`
	RecentCompany  string   `mapstructure:"recent_company"`
	Summary        string   `mapstructure:"candidate_summary"`
}

type jobResponse struct {
	ExtractedSkills []string `mapstructure:"extracted_skills"`
	SeniorityLevel  string   `mapstructure:"seniority_level"`
	RequiredYears   any      `mapstructure:"required_experience_years"`
	Location        string   `mapstructure:"location_normalized"`
	Summary         string   `mapstructure:"job_summary_for_embedding"`
}

func (e *Extractor) ExtractCandidate(ctx context.Context, candidate records.RawCandidate) (ai.CandidateFeatures, error) {
	id := candidate.ID.String()
	log := logger.WithRecord(e.logger, records.KindCandidate, id)

	if !candidate.HasContent() {
		log.Warn("degraded extraction: candidate has no skills, experience or education")
		return ai.CandidateFeatures{Skills: []string{}, Seniority: ai.SeniorityUnknown}, nil
	}

	payload, err := json.MarshalIndent(candidatePayload(candidate), "", "  ")
	if err != nil {
		return ai.CandidateFeatures{}, &ai.ExtractionError{RecordID: id, Err: fmt.Errorf("marshal candidate payload: %w", err)}
	}

	prompt := strings.ReplaceAll(candidatePromptTemplate, "{{CANDIDATE_JSON}}", string(payload))
	prompt = strings.ReplaceAll(prompt, "{{TODAY}}", e.now().Format("January 2, 2006"))

	doc, err := e.generate(ctx, log, prompt)
	if err != nil {
		return ai.CandidateFeatures{}, &ai.ExtractionError{RecordID: id, Err: err}
	}

	if err := loadSchemas(); err != nil {
		return ai.CandidateFeatures{}, &ai.ExtractionError{RecordID: id, Err: err}
	}
	var resp candidateResponse
	if err := decodeResponse(candidateSchemaV, doc, &resp); err != nil {
		return ai.CandidateFeatures{}, &ai.ExtractionError{RecordID: id, Err: err}
	}

	features := ai.CandidateFeatures{
		Skills:         ai.NormalizeSkills(candidate.Skills, resp.SkillKeywords),
		Seniority:      ai.ParseSeniority(resp.SeniorityLevel),
		EducationLevel: strings.TrimSpace(resp.EducationLevel),
		RecentTitle:    strings.TrimSpace(resp.RecentTitle),
		RecentCompany:  strings.TrimSpace(resp.RecentCompany),
		Summary:        strings.TrimSpace(resp.Summary),
	}

	if years, ok := parseYears(resp.TotalYears); ok {
		features.YearsExperience = years
	} else {
		features.YearsExperience = candidate.YearsOfExperience(e.now())
		log.Debug("computed years of experience locally", zap.Float64("years", features.YearsExperience))
	}

	if recent, ok := candidate.RecentExperience(); ok {
		if features.RecentTitle == "" {
			features.RecentTitle = strings.TrimSpace(recent.Role)
		}
		if features.RecentCompany == "" {
			features.RecentCompany = strings.TrimSpace(recent.Company)
		}
	}

	return features, nil
}

func (e *Extractor) ExtractJob(ctx context.Context, job records.RawJob) (ai.JobFeatures, error) {
	id := job.ID.String()
	log := logger.WithRecord(e.logger, records.KindJob, id)

	if !job.HasContent() {
		log.Warn("degraded extraction: job has no description or required skills")
		return ai.JobFeatures{Skills: []string{}, Seniority: ai.SeniorityUnknown}, nil
	}

	payload, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return ai.JobFeatures{}, &ai.ExtractionError{RecordID: id, Err: fmt.Errorf("marshal job payload: %w", err)}
	}

	prompt := strings.ReplaceAll(jobPromptTemplate, "{{JOB_JSON}}", string(payload))

	doc, err := e.generate(ctx, log, prompt)
	if err != nil {
		return ai.JobFeatures{}, &ai.ExtractionError{RecordID: id, Err: err}
	}

	if err := loadSchemas(); err != nil {
		return ai.JobFeatures{}, &ai.ExtractionError{RecordID: id, Err: err}
	}
	var resp jobResponse
	if err := decodeResponse(jobSchemaV, doc, &resp); err != nil {
		return ai.JobFeatures{}, &ai.ExtractionError{RecordID: id, Err: err}
	}

	features := ai.JobFeatures{
		Skills:                ai.NormalizeSkills(job.RequiredSkills, resp.ExtractedSkills),
		Seniority:             ai.ParseSeniority(resp.SeniorityLevel),
		NormalizedDescription: strings.TrimSpace(resp.Summary),
		Location:              strings.TrimSpace(resp.Location),
	}

	if years, ok := parseYears(resp.RequiredYears); ok {
		features.MinExperienceYears = years
	} else {
		features.MinExperienceYears = features.Seniority.DefaultExperienceYears()
	}

	return features, nil
}

func (e *Extractor) generate(ctx context.Context, log *zap.Logger, prompt string) (map[string]any, error) {
	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateJSON(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	var doc map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &doc); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}
	return doc, nil
}

func decodeResponse(schema *gojsonschema.Schema, doc map[string]any, out any) error {
	if err := validateDocument(schema, doc); err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(doc); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

var leadingNumber = regexp.MustCompile(`^\d+(\.\d+)?`)

// parseYears reads a years value the model returned as a number or as text
// such as "6", "5+" or "3.5 years". Empty and non-numeric text is absent.
func parseYears(v any) (float64, bool) {
	var years float64
	switch v := v.(type) {
	case float64:
		years = v
	case int:
		years = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		years = f
	case string:
		m := leadingNumber.FindString(strings.TrimSpace(v))
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		years = f
	default:
		return 0, false
	}
	if math.IsNaN(years) || math.IsInf(years, 0) || years < 0 {
		return 0, false
	}
	return years, true
}

// candidatePayload drops contact details the model does not need.
func candidatePayload(c records.RawCandidate) map[string]any {
	return map[string]any{
		"domain":      c.Domain,
		"skills":      c.Skills,
		"experiences": c.Experiences,
		"education":   c.Education,
	}
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
