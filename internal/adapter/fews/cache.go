package fews

import (
	"context"

	"github.com/couchcryptid/fews-client/internal/domain"
	"github.com/couchcryptid/fews-client/internal/observability"
	lru "github.com/hashicorp/golang-lru"
)

// CachedSource wraps a TimeSeriesSource with an in-memory LRU cache keyed by
// the encoded request.
type CachedSource struct {
	inner   domain.TimeSeriesSource
	cache   *lru.Cache
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a time series source.
func NewCachedSource(inner domain.TimeSeriesSource, maxEntries int, metrics *observability.Metrics) (*CachedSource, error) {
	cache, err := lru.New(maxEntries)
	if err != nil {
		return nil, err
	}
	return &CachedSource{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedSource) FetchTimeSeries(ctx context.Context, q domain.TimeSeriesQuery) (domain.Document, error) {
	key, ok := cacheKey(q)
	if !ok {
		return c.inner.FetchTimeSeries(ctx, q)
	}

	if doc, hit := c.cache.Get(key); hit {
		c.metrics.Cache.WithLabelValues("hit").Inc()
		return doc.(domain.Document), nil
	}
	c.metrics.Cache.WithLabelValues("miss").Inc()

	doc, err := c.inner.FetchTimeSeries(ctx, q)
	if err != nil {
		return doc, err
	}
	// Empty answers are not cached so data that arrives later is picked up.
	if !doc.IsEmpty() {
		c.cache.Add(key, doc)
	}
	return doc, nil
}

// Len reports the number of cached documents.
func (c *CachedSource) Len() int {
	return c.cache.Len()
}

// cacheKey is the query string the request would be sent with. Queries that
// fail to encode are passed through uncached so the source reports the error.
func cacheKey(q domain.TimeSeriesQuery) (string, bool) {
	values, err := domain.TimeSeriesEndpoint.Encode(q.Args())
	if err != nil {
		return "", false
	}
	return values.Encode(), true
}
