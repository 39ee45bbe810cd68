package gemini

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const candidateSchema = `{
  "type": "object",
  "required": ["skill_keywords", "seniority_level", "candidate_summary"],
  "properties": {
    "total_years_of_experience": {"type": ["number", "string", "null"]},
    "seniority_level": {"type": "string"},
    "education_level": {"type": ["string", "null"]},
    "skill_keywords": {"type": "array", "items": {"type": "string"}},
    "recent_job_title": {"type": ["string", "null"]},
    "recent_company": {"type": ["string", "null"]},
    "candidate_summary": {"type": "string"}
  }
}`

const jobSchema = `{
  "type": "object",
  "required": ["extracted_skills", "seniority_level", "job_summary_for_embedding"],
  "properties": {
    "extracted_skills": {"type": "array", "items": {"type": "string"}},
    "seniority_level": {"type": "string"},
    "required_experience_years": {"type": ["number", "string", "null"]},
    "location_normalized": {"type": ["string", "null"]},
    "job_summary_for_embedding": {"type": "string"}
  }
}`

var (
	schemasOnce      sync.Once
	candidateSchemaV *gojsonschema.Schema
	jobSchemaV       *gojsonschema.Schema
	schemasErr       error
)

func loadSchemas() error {
	schemasOnce.Do(func() {
		candidateSchemaV, schemasErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(candidateSchema))
		if schemasErr != nil {
			return
		}
		jobSchemaV, schemasErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(jobSchema))
	})
	return schemasErr
}

func validateDocument(schema *gojsonschema.Schema, doc map[string]any) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate response: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		problems = append(problems, field+": "+desc.Description())
	}
	return fmt.Errorf("response does not match schema: %s", strings.Join(problems, "; "))
}
