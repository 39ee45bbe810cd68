package enrichment

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/candidate-matcher/internal/ai"
	"github.com/spigell/candidate-matcher/internal/records"
)

type (
	CandidateCache = Cache[records.RawCandidate, EnrichedCandidate]
	JobCache       = Cache[records.RawJob, EnrichedJob]
)

var now = time.Now

// NewCandidateCache creates the candidate cache: one extraction and one
// embedding call per refresh.
func NewCandidateCache(store Store[EnrichedCandidate], extractor ai.FeatureExtractor, embedder ai.Embedder, log *zap.Logger) *CandidateCache {
	enrich := func(ctx context.Context, id string, raw records.RawCandidate, fingerprint string) (EnrichedCandidate, error) {
		features, err := extractor.ExtractCandidate(ctx, raw)
		if err != nil {
			return EnrichedCandidate{}, err
		}

		vec, err := embedder.Embed(ctx, EmbeddingText(features.Summary, features.Skills, raw.Text()))
		if err != nil {
			return EnrichedCandidate{}, err
		}

		return EnrichedCandidate{
			ID:                id,
			CandidateFeatures: features,
			Embedding:         vec,
			EmbeddingModel:    embedder.Model(),
			SourceFingerprint: fingerprint,
			EnrichedAt:        now().UTC(),
		}, nil
	}

	return NewCache[records.RawCandidate, EnrichedCandidate](records.KindCandidate, embedder.Model(), store, enrich, log)
}

// NewJobCache creates the job cache.
func NewJobCache(store Store[EnrichedJob], extractor ai.FeatureExtractor, embedder ai.Embedder, log *zap.Logger) *JobCache {
	enrich := func(ctx context.Context, id string, raw records.RawJob, fingerprint string) (EnrichedJob, error) {
		features, err := extractor.ExtractJob(ctx, raw)
		if err != nil {
			return EnrichedJob{}, err
		}

		vec, err := embedder.Embed(ctx, EmbeddingText(features.NormalizedDescription, features.Skills, raw.Text()))
		if err != nil {
			return EnrichedJob{}, err
		}

		return EnrichedJob{
			ID:                id,
			JobFeatures:       features,
			Embedding:         vec,
			EmbeddingModel:    embedder.Model(),
			SourceFingerprint: fingerprint,
			EnrichedAt:        now().UTC(),
		}, nil
	}

	return NewCache[records.RawJob, EnrichedJob](records.KindJob, embedder.Model(), store, enrich, log)
}
