package enrichment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/candidate-matcher/internal/ai"
	"github.com/spigell/candidate-matcher/internal/records"
	"github.com/spigell/candidate-matcher/internal/store/memory"
)

type fakeExtractor struct {
	candidateCalls atomic.Int32
	jobCalls       atomic.Int32
	gate           chan struct{}
	err            error
}

func (f *fakeExtractor) ExtractCandidate(ctx context.Context, c records.RawCandidate) (ai.CandidateFeatures, error) {
	f.candidateCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return ai.CandidateFeatures{}, &ai.ExtractionError{RecordID: c.ID.String(), Err: f.err}
	}
	return ai.CandidateFeatures{
		Skills:          ai.NormalizeSkills(c.Skills),
		Seniority:       ai.SeniorityMid,
		Summary:         "summary of " + c.FirstName,
		YearsExperience: 3,
	}, nil
}

func (f *fakeExtractor) ExtractJob(ctx context.Context, j records.RawJob) (ai.JobFeatures, error) {
	f.jobCalls.Add(1)
	if f.err != nil {
		return ai.JobFeatures{}, &ai.ExtractionError{RecordID: j.ID.String(), Err: f.err}
	}
	return ai.JobFeatures{Skills: ai.NormalizeSkills(j.RequiredSkills), MinExperienceYears: 2}, nil
}

type fakeEmbedder struct {
	calls atomic.Int32
	mu    sync.Mutex
	texts []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) Dimension() int { return 2 }
func (f *fakeEmbedder) Model() string  { return "fake-embed" }

func newCandidateCache(t *testing.T, ext *fakeExtractor, emb *fakeEmbedder) *CandidateCache {
	t.Helper()
	store, err := memory.New[EnrichedCandidate](0)
	require.NoError(t, err)
	return NewCandidateCache(store, ext, emb, zap.NewNop())
}

var ada = records.RawCandidate{ID: "1", FirstName: "Ada", Skills: []string{"Python", "AWS"}}

func TestGetOrRefreshCachesUntilFingerprintChanges(t *testing.T) {
	ext, emb := &fakeExtractor{}, &fakeEmbedder{}
	cache := newCandidateCache(t, ext, emb)
	ctx := context.Background()

	first, status, err := cache.GetOrRefresh(ctx, "1", ada)
	require.NoError(t, err)
	assert.Equal(t, StatusEnriched, status)
	assert.Equal(t, ada.Fingerprint(), first.SourceFingerprint)
	assert.Equal(t, "fake-embed", first.EmbeddingModel)
	assert.Equal(t, []string{"aws", "python"}, first.Skills)

	second, status, err := cache.GetOrRefresh(ctx, "1", ada)
	require.NoError(t, err)
	assert.Equal(t, StatusCached, status)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), ext.candidateCalls.Load())
	assert.Equal(t, int32(1), emb.calls.Load())

	reordered := ada
	reordered.Skills = []string{"AWS", "Python"}
	_, status, err = cache.GetOrRefresh(ctx, "1", reordered)
	require.NoError(t, err)
	assert.Equal(t, StatusCached, status, "reordering a set is not a content change")

	mutated := ada
	mutated.Skills = []string{"Python", "AWS", "Docker"}
	third, status, err := cache.GetOrRefresh(ctx, "1", mutated)
	require.NoError(t, err)
	assert.Equal(t, StatusEnriched, status)
	assert.Equal(t, mutated.Fingerprint(), third.SourceFingerprint)
	assert.Equal(t, int32(2), ext.candidateCalls.Load())

	assert.Equal(t, Stats{Hits: 2, Refreshes: 2}, cache.Stats())
}

func TestGetOrRefreshSingleFlightPerID(t *testing.T) {
	ext := &fakeExtractor{gate: make(chan struct{})}
	emb := &fakeEmbedder{}
	cache := newCandidateCache(t, ext, emb)

	const callers = 20
	var (
		wg       sync.WaitGroup
		statuses = make([]Status, callers)
		errs     = make([]error, callers)
		results  = make([]EnrichedCandidate, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], statuses[i], errs[i] = cache.GetOrRefresh(context.Background(), "1", ada)
		}(i)
	}

	require.Eventually(t, func() bool { return ext.candidateCalls.Load() == 1 }, time.Second, time.Millisecond)
	// Let the other callers reach the in-flight refresh before it completes.
	time.Sleep(20 * time.Millisecond)
	close(ext.gate)
	wg.Wait()

	assert.Equal(t, int32(1), ext.candidateCalls.Load())
	assert.Equal(t, int32(1), emb.calls.Load())
	assert.Equal(t, ada.Fingerprint(), results[0].SourceFingerprint)
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, StatusEnriched, statuses[i], "caller %d", i)
		assert.Equal(t, results[0], results[i], "caller %d", i)
	}
}

func TestGetOrRefreshFailureIsReported(t *testing.T) {
	ext := &fakeExtractor{err: context.DeadlineExceeded}
	emb := &fakeEmbedder{}
	cache := newCandidateCache(t, ext, emb)

	_, status, err := cache.GetOrRefresh(context.Background(), "1", ada)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, status)
	assert.True(t, errors.Is(err, ai.ErrExtraction))
	assert.Equal(t, int32(0), emb.calls.Load())
	assert.Equal(t, int64(1), cache.Stats().Failures)

	// Failures are not cached.
	ext.err = nil
	_, status, err = cache.GetOrRefresh(context.Background(), "1", ada)
	require.NoError(t, err)
	assert.Equal(t, StatusEnriched, status)
}

func TestGetOrRefreshCompletesAfterCallerGivesUp(t *testing.T) {
	ext := &fakeExtractor{gate: make(chan struct{})}
	emb := &fakeEmbedder{}
	cache := newCandidateCache(t, ext, emb)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := cache.GetOrRefresh(ctx, "1", ada)
		done <- err
	}()

	require.Eventually(t, func() bool { return ext.candidateCalls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(ext.gate)
	require.Eventually(t, func() bool { return cache.Stats().Refreshes == 1 }, time.Second, time.Millisecond)

	_, status, err := cache.GetOrRefresh(context.Background(), "1", ada)
	require.NoError(t, err)
	assert.Equal(t, StatusCached, status)
	assert.Equal(t, int32(1), ext.candidateCalls.Load())
}

func TestCachedEntryFromOtherModelIsRefreshed(t *testing.T) {
	store, err := memory.New[EnrichedCandidate](0)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "1", EnrichedCandidate{
		ID:                "1",
		SourceFingerprint: ada.Fingerprint(),
		EmbeddingModel:    "old-model",
	}))

	ext, emb := &fakeExtractor{}, &fakeEmbedder{}
	cache := NewCandidateCache(store, ext, emb, zap.NewNop())

	_, status, err := cache.GetOrRefresh(context.Background(), "1", ada)
	require.NoError(t, err)
	assert.Equal(t, StatusEnriched, status)
}

func TestJobCacheEmbedsSummaryFallback(t *testing.T) {
	store, err := memory.New[EnrichedJob](0)
	require.NoError(t, err)
	ext, emb := &fakeExtractor{}, &fakeEmbedder{}
	cache := NewJobCache(store, ext, emb, zap.NewNop())

	job := records.RawJob{ID: "j-1", JobTitle: "Backend", RequiredSkills: []string{"Python", "AWS"}}
	enriched, status, err := cache.GetOrRefresh(context.Background(), "j-1", job)
	require.NoError(t, err)
	assert.Equal(t, StatusEnriched, status)
	assert.Equal(t, 2.0, enriched.MinExperienceYears)
	assert.Equal(t, []string{"aws python"}, emb.texts, "empty summary falls back to the skills")
}

func TestEmbeddingText(t *testing.T) {
	assert.Equal(t, "summary", EmbeddingText(" summary ", []string{"go"}, "raw"))
	assert.Equal(t, "go python", EmbeddingText("", []string{"go", "python"}, "raw"))
	assert.Equal(t, "raw", EmbeddingText("", nil, " raw "))
	assert.Equal(t, "", EmbeddingText("", nil, ""))
}
