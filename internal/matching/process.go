package matching

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/candidate-matcher/internal/enrichment"
	"github.com/spigell/candidate-matcher/internal/records"
)

// ProcessResult reports how one candidate of a batch was handled.
type ProcessResult struct {
	ID     string
	Status enrichment.Status
	Error  error
}

// String renders the result as enriched, cached or failed:<reason>.
func (r ProcessResult) String() string {
	if r.Status == enrichment.StatusFailed {
		reason := "unknown error"
		if r.Error != nil {
			reason = r.Error.Error()
		}
		return string(enrichment.StatusFailed) + ":" + reason
	}
	return string(r.Status)
}

// BatchSummary counts the statuses of a batch.
type BatchSummary struct {
	Enriched int `json:"enriched"`
	Cached   int `json:"cached"`
	Failed   int `json:"failed"`
}

func Summarize(results []ProcessResult) BatchSummary {
	var sum BatchSummary
	for _, r := range results {
		switch r.Status {
		case enrichment.StatusEnriched:
			sum.Enriched++
		case enrichment.StatusCached:
			sum.Cached++
		default:
			sum.Failed++
		}
	}
	return sum
}

// ProcessCandidates enriches a batch and adds the valid records to the
// candidate pool. Results follow the input order; a failing record never
// fails the batch.
func (s *Service) ProcessCandidates(ctx context.Context, candidates []records.RawCandidate) []ProcessResult {
	start := time.Now()
	results := make([]ProcessResult, len(candidates))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrency)

	for i, c := range candidates {
		id := c.ID.String()
		if err := records.Validate(c); err != nil {
			results[i] = ProcessResult{ID: id, Status: enrichment.StatusFailed, Error: err}
			continue
		}
		s.repo.UpsertCandidates(c)

		g.Go(func() error {
			_, status, err := s.candidates.GetOrRefresh(ctx, id, c)
			results[i] = ProcessResult{ID: id, Status: status, Error: err}
			return nil
		})
	}
	_ = g.Wait()

	sum := Summarize(results)
	s.logger.Info("candidates processed",
		zap.Int("total", len(results)),
		zap.Int("enriched", sum.Enriched),
		zap.Int("cached", sum.Cached),
		zap.Int("failed", sum.Failed),
		zap.Duration("took", time.Since(start)),
	)

	return results
}
