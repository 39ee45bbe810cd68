package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/candidate-matcher/internal/enrichment"
	"github.com/spigell/candidate-matcher/internal/records"
)

func TestProcessCandidates(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.candidate("1", 3, unit(0.5))
	f.candidate("2", 3, unit(0.5))
	f.extractor.failing["3"] = true

	batch := []records.RawCandidate{
		{ID: "1", Skills: []string{"Python"}},
		{ID: "2", Skills: []string{"Go"}},
		{ID: "3", Skills: []string{"Rust"}},
		{ID: "4", Email: "not-an-email"},
	}

	results := f.service.ProcessCandidates(context.Background(), batch)
	require.Len(t, results, 4)

	assert.Equal(t, "1", results[0].ID)
	assert.Equal(t, "enriched", results[0].String())
	assert.Equal(t, "enriched", results[1].String())
	assert.Equal(t, enrichment.StatusFailed, results[2].Status)
	assert.Contains(t, results[2].String(), "failed:")
	assert.ErrorIs(t, results[3].Error, records.ErrInvalidRecord)
	assert.Equal(t, BatchSummary{Enriched: 2, Failed: 2}, Summarize(results))

	_, err := f.repo.Candidate("3")
	assert.NoError(t, err, "valid records join the pool even when enrichment fails")
	_, err = f.repo.Candidate("4")
	assert.ErrorIs(t, err, records.ErrRecordNotFound)

	again := f.service.ProcessCandidates(context.Background(), batch[:2])
	assert.Equal(t, "cached", again[0].String())
	assert.Equal(t, "cached", again[1].String())
	assert.Equal(t, 2, f.embedder.calls)
}

func TestProcessResultString(t *testing.T) {
	assert.Equal(t, "failed:unknown error", ProcessResult{Status: enrichment.StatusFailed}.String())
	assert.Equal(t, "cached", ProcessResult{Status: enrichment.StatusCached}.String())
}
