package enrichment

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spigell/candidate-matcher/internal/logger"
)

// Store persists enriched entries by record id.
type Store[T any] interface {
	Get(ctx context.Context, id string) (T, bool, error)
	Put(ctx context.Context, id string, value T) error
}

// Source is a raw record the cache can enrich.
type Source interface {
	Fingerprint() string
}

// Entry is a cached enrichment.
type Entry interface {
	IsFresh(fingerprint, model string) bool
}

// EnrichFunc derives a fresh entry for a raw record.
type EnrichFunc[R Source, T Entry] func(ctx context.Context, id string, raw R, fingerprint string) (T, error)

// Stats are cumulative counters of a cache.
type Stats struct {
	Hits      int64
	Refreshes int64
	Failures  int64
}

// Cache keeps one enriched entry per record id and refreshes it when the raw
// record changes. At most one refresh per id is in flight; concurrent callers
// for the same id share it.
type Cache[R Source, T Entry] struct {
	kind   string
	model  string
	store  Store[T]
	enrich EnrichFunc[R, T]
	logger *zap.Logger

	flights singleflight.Group

	hits      atomic.Int64
	refreshes atomic.Int64
	failures  atomic.Int64
}

// NewCache creates an empty cache over store. model is the embedding model
// name; entries produced by another model are refreshed.
func NewCache[R Source, T Entry](kind, model string, store Store[T], enrich EnrichFunc[R, T], log *zap.Logger) *Cache[R, T] {
	return &Cache[R, T]{
		kind:   kind,
		model:  model,
		store:  store,
		enrich: enrich,
		logger: logger.WithFields(log, zap.String(logger.FieldRecordKind, kind)),
	}
}

type flightResult[T any] struct {
	value       T
	fingerprint string
	status      Status
	err         error
}

// GetOrRefresh returns the entry for id, enriching raw when the cached entry
// is missing or stale. A caller whose ctx ends stops waiting, but a refresh
// already started keeps running and populates the cache.
func (c *Cache[R, T]) GetOrRefresh(ctx context.Context, id string, raw R) (T, Status, error) {
	var zero T
	fingerprint := raw.Fingerprint()

	if value, ok := c.lookup(ctx, id, fingerprint); ok {
		c.hits.Add(1)
		return value, StatusCached, nil
	}

	detached := context.WithoutCancel(ctx)
	for {
		ch := c.flights.DoChan(id, func() (any, error) {
			return c.refresh(detached, id, raw, fingerprint), nil
		})

		select {
		case <-ctx.Done():
			return zero, StatusFailed, ctx.Err()
		case res := <-ch:
			fr := res.Val.(flightResult[T])
			if fr.fingerprint != fingerprint {
				// Joined a refresh of another version of the record.
				if value, ok := c.lookup(ctx, id, fingerprint); ok {
					c.hits.Add(1)
					return value, StatusCached, nil
				}
				continue
			}
			if fr.err != nil {
				return zero, StatusFailed, fr.err
			}
			return fr.value, fr.status, nil
		}
	}
}

func (c *Cache[R, T]) lookup(ctx context.Context, id, fingerprint string) (T, bool) {
	value, ok, err := c.store.Get(ctx, id)
	if err != nil {
		c.logger.Warn("enrichment store read failed", zap.String(logger.FieldRecordID, id), zap.Error(err))
		return value, false
	}
	if !ok || !value.IsFresh(fingerprint, c.model) {
		return value, false
	}
	return value, true
}

func (c *Cache[R, T]) refresh(ctx context.Context, id string, raw R, fingerprint string) flightResult[T] {
	// A refresh that finished just before this flight started may already
	// have stored the entry.
	if value, ok := c.lookup(ctx, id, fingerprint); ok {
		c.hits.Add(1)
		return flightResult[T]{value: value, fingerprint: fingerprint, status: StatusCached}
	}

	log := c.logger.With(zap.String(logger.FieldRecordID, id))
	start := time.Now()

	value, err := c.enrich(ctx, id, raw, fingerprint)
	if err != nil {
		c.failures.Add(1)
		log.Warn("enrichment failed", zap.Duration("took", time.Since(start)), zap.Error(err))
		return flightResult[T]{fingerprint: fingerprint, err: fmt.Errorf("enrich %s %s: %w", c.kind, id, err)}
	}

	if err := c.store.Put(ctx, id, value); err != nil {
		log.Error("enrichment store write failed", zap.Error(err))
	}

	c.refreshes.Add(1)
	log.Debug("record enriched", zap.Duration("took", time.Since(start)))

	return flightResult[T]{value: value, fingerprint: fingerprint, status: StatusEnriched}
}

func (c *Cache[R, T]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Refreshes: c.refreshes.Load(),
		Failures:  c.failures.Load(),
	}
}
