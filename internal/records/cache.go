package records

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/clinic-appointment-platform/internal/observability/metrics"
)

const DefaultFetchConcurrency = 8

// FetchFunc loads one record. Returning ErrRecordNotFound marks the id as
// missing without failing the batch.
type FetchFunc[T any] func(ctx context.Context, id uuid.UUID) (T, error)

// Cache memoizes records by id for the lifetime of one list request.
// It has no eviction; build a new one per request.
type Cache[T any] struct {
	kind    string
	fetch   FetchFunc[T]
	limit   int
	metrics *metrics.ClinicMetrics

	mu      sync.RWMutex
	entries map[uuid.UUID]T
}

func NewCache[T any](kind string, fetch FetchFunc[T], limit int, m *metrics.ClinicMetrics) *Cache[T] {
	if limit <= 0 {
		limit = DefaultFetchConcurrency
	}
	return &Cache[T]{
		kind:    kind,
		fetch:   fetch,
		limit:   limit,
		metrics: m,
		entries: make(map[uuid.UUID]T),
	}
}

func (c *Cache[T]) Lookup(id uuid.UUID) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[id]
	return v, ok
}

// Populate fetches every id not already cached in one parallel fan-out and
// returns the cache contents once all fetches have finished. Nil and
// duplicate ids are ignored. The first non-not-found error cancels the
// remaining fetches and is returned alongside what was loaded.
func (c *Cache[T]) Populate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]T, error) {
	missing := c.missing(ids)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for _, id := range missing {
		g.Go(func() error {
			v, err := c.fetch(gctx, id)
			switch {
			case errors.Is(err, ErrRecordNotFound):
				c.metrics.ObserveCacheFetch(c.kind, "missing")
				return nil
			case err != nil:
				c.metrics.ObserveCacheFetch(c.kind, "error")
				return err
			}
			c.metrics.ObserveCacheFetch(c.kind, "fetched")

			c.mu.Lock()
			c.entries[id] = v
			c.mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	return c.snapshot(), err
}

func (c *Cache[T]) missing(ids []uuid.UUID) []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{}, len(ids))
	var out []uuid.UUID
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := c.entries[id]; ok {
			c.metrics.ObserveCacheFetch(c.kind, "hit")
			continue
		}
		out = append(out, id)
	}
	return out
}

func (c *Cache[T]) snapshot() map[uuid.UUID]T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uuid.UUID]T, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
