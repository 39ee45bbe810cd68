package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/candidate-matcher/internal/enrichment"
	"github.com/spigell/candidate-matcher/internal/filtering"
	"github.com/spigell/candidate-matcher/internal/logger"
	"github.com/spigell/candidate-matcher/internal/ranking"
	"github.com/spigell/candidate-matcher/internal/records"
)

// MatchResult is one ranked candidate for a job.
type MatchResult struct {
	CandidateID         string  `json:"candidate_id"`
	CombinedScore       float64 `json:"combined_score"`
	KeywordScore        float64 `json:"keyword_score"`
	VectorScore         float64 `json:"vector_score"`
	PassedKeywordFilter bool    `json:"-"`
}

// Recommendation is the ranked output for a resolved job.
type Recommendation struct {
	JobID   string        `json:"job_id"`
	Results []MatchResult `json:"results"`
}

// Service runs the two-stage search: keyword filtering, then vector ranking
// of the survivors.
type Service struct {
	cfg        Config
	repo       *records.Repository
	candidates *enrichment.CandidateCache
	jobs       *enrichment.JobCache
	logger     *zap.Logger
}

func NewService(cfg Config, repo *records.Repository, candidates *enrichment.CandidateCache, jobs *enrichment.JobCache, log *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		cfg:        cfg.withDefaults(),
		repo:       repo,
		candidates: candidates,
		jobs:       jobs,
		logger:     log.Named("matching"),
	}, nil
}

// Recommend ranks the candidate pool for a known job.
func (s *Service) Recommend(ctx context.Context, jobID string, topK int) (Recommendation, error) {
	job, err := s.repo.Job(records.ID(jobID))
	if err != nil {
		return Recommendation{}, err
	}
	return s.recommend(ctx, job, topK)
}

// RecommendJob ranks the candidate pool for an inline job. The job is added
// to the repository so it can be referenced by id later on.
func (s *Service) RecommendJob(ctx context.Context, job records.RawJob, topK int) (Recommendation, error) {
	if err := records.Validate(job); err != nil {
		return Recommendation{}, err
	}
	return s.recommend(ctx, s.repo.UpsertJob(job), topK)
}

func (s *Service) recommend(ctx context.Context, raw records.RawJob, topK int) (Recommendation, error) {
	start := time.Now()
	jobID := raw.ID.String()
	log := logger.WithRecord(s.logger, records.KindJob, jobID)

	job, _, err := s.jobs.GetOrRefresh(ctx, jobID, raw)
	if err != nil {
		return Recommendation{}, fmt.Errorf("resolve job %s: %w", jobID, err)
	}

	pool, err := s.enrichPool(ctx, s.repo.Candidates())
	if err != nil {
		return Recommendation{}, err
	}

	steps := filtering.DefaultSteps()
	if !s.cfg.ExperienceFilter {
		filtering.DisableByName(steps, filtering.ExperienceFilterName, "disabled in config")
	}

	matches, err := filtering.Run(ctx, &filtering.Config{Threshold: s.cfg.KeywordThreshold}, filtering.Deps{Logger: log}, steps, job, pool)
	if err != nil {
		return Recommendation{}, fmt.Errorf("keyword filter: %w", err)
	}

	retained := make([]enrichment.EnrichedCandidate, 0, len(matches))
	keyword := make(map[string]float64, len(matches))
	for _, m := range matches {
		if !m.Passed {
			continue
		}
		retained = append(retained, m.Candidate)
		keyword[m.Candidate.ID] = m.KeywordScore
	}

	scored, err := ranking.Rank(job.Embedding, retained)
	if err != nil {
		return Recommendation{}, fmt.Errorf("rank candidates for job %s: %w", jobID, err)
	}

	results := combine(scored, keyword, s.cfg)
	k := s.cfg.topK(topK)
	if len(results) > k {
		results = results[:k]
	}

	log.Info("recommendation computed",
		zap.Int("pool", len(pool)),
		zap.Int("passed", len(retained)),
		zap.Int("returned", len(results)),
		zap.Int("top_k", k),
		zap.Duration("took", time.Since(start)),
	)

	return Recommendation{JobID: jobID, Results: results}, nil
}

func combine(scored []ranking.Scored[enrichment.EnrichedCandidate], keyword map[string]float64, cfg Config) []MatchResult {
	wKeyword, wVector := cfg.weights()

	results := make([]MatchResult, 0, len(scored))
	for _, sc := range scored {
		kw := ranking.Clamp01(keyword[sc.Item.ID])
		results = append(results, MatchResult{
			CandidateID:         sc.Item.ID,
			KeywordScore:        kw,
			VectorScore:         sc.VectorScore,
			CombinedScore:       ranking.Clamp01(wKeyword*kw + wVector*sc.VectorScore),
			PassedKeywordFilter: true,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if a.VectorScore != b.VectorScore {
			return a.VectorScore > b.VectorScore
		}
		return a.CandidateID < b.CandidateID
	})

	return results
}

// enrichPool resolves every candidate through the cache. Candidates that fail
// to enrich are left out; a dimension mismatch aborts the search.
func (s *Service) enrichPool(ctx context.Context, raw []records.RawCandidate) ([]enrichment.EnrichedCandidate, error) {
	enriched := make([]enrichment.EnrichedCandidate, len(raw))
	ok := make([]bool, len(raw))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrency)

	for i, c := range raw {
		g.Go(func() error {
			id := c.ID.String()
			value, _, err := s.candidates.GetOrRefresh(ctx, id, c)
			switch {
			case err == nil:
				enriched[i], ok[i] = value, true
			case errors.Is(err, ranking.ErrDimensionMismatch):
				return err
			default:
				if ctx.Err() == nil {
					s.logger.Warn("candidate excluded from search",
						zap.String(logger.FieldRecordID, id),
						zap.Error(err),
					)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pool := make([]enrichment.EnrichedCandidate, 0, len(raw))
	for i := range raw {
		if ok[i] {
			pool = append(pool, enriched[i])
		}
	}
	return pool, nil
}
