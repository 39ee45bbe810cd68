package enrichment

import (
	"strings"
	"time"

	"github.com/spigell/candidate-matcher/internal/ai"
)

// Status tells how GetOrRefresh satisfied a request.
type Status string

const (
	StatusEnriched Status = "enriched"
	StatusCached   Status = "cached"
	StatusFailed   Status = "failed"
)

// EnrichedCandidate is the cached, searchable form of a candidate.
type EnrichedCandidate struct {
	ID string `json:"id"`
	ai.CandidateFeatures
	Embedding         []float32 `json:"embedding"`
	EmbeddingModel    string    `json:"embedding_model"`
	SourceFingerprint string    `json:"source_fingerprint"`
	EnrichedAt        time.Time `json:"enriched_at"`
}

func (c EnrichedCandidate) IsFresh(fingerprint, model string) bool {
	return c.SourceFingerprint == fingerprint && c.EmbeddingModel == model
}

func (c EnrichedCandidate) RankingID() string { return c.ID }

func (c EnrichedCandidate) Vector() []float32 { return c.Embedding }

// EnrichedJob is the cached, searchable form of a job posting.
type EnrichedJob struct {
	ID string `json:"id"`
	ai.JobFeatures
	Embedding         []float32 `json:"embedding"`
	EmbeddingModel    string    `json:"embedding_model"`
	SourceFingerprint string    `json:"source_fingerprint"`
	EnrichedAt        time.Time `json:"enriched_at"`
}

func (j EnrichedJob) IsFresh(fingerprint, model string) bool {
	return j.SourceFingerprint == fingerprint && j.EmbeddingModel == model
}

// EmbeddingText picks the text to embed: the summary, else the skills joined
// with spaces, else the fallback rendering of the raw record.
func EmbeddingText(summary string, skills []string, fallback string) string {
	if s := strings.TrimSpace(summary); s != "" {
		return s
	}
	if joined := strings.TrimSpace(strings.Join(skills, " ")); joined != "" {
		return joined
	}
	return strings.TrimSpace(fallback)
}
