// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache keeps recent search results keyed by canonical query
// parameters.
//
// The cache is owned by the worker goroutine. It must be cleared before
// every index build: a rebuilt index can change the right answer for any
// query already cached.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pdiddy/docfinder/pkg/types"
)

// DefaultCapacity is the number of queries kept when no capacity is set.
const DefaultCapacity = 128

// Stats counts lookups since the cache was created.
type Stats struct {
	Hits   int
	Misses int
}

// ResultCache is a bounded LRU from query key to result list.
type ResultCache struct {
	lru   *lru.Cache[types.QueryKey, []types.SearchResult]
	stats Stats
}

// New creates a cache holding up to capacity queries. A capacity of zero
// or less uses DefaultCapacity.
func New(capacity int) (*ResultCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := lru.New[types.QueryKey, []types.SearchResult](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating result cache: %w", err)
	}
	return &ResultCache{lru: c}, nil
}

// GetOrCompute returns the cached list for key, calling compute exactly
// once on a miss. A compute error is returned as is and nothing is stored,
// so failed or cancelled searches never populate the cache. hit reports
// whether compute was skipped.
func (c *ResultCache) GetOrCompute(key types.QueryKey, compute func() ([]types.SearchResult, error)) (results []types.SearchResult, hit bool, err error) {
	if cached, ok := c.lru.Get(key); ok {
		c.stats.Hits++
		return cached, true, nil
	}
	c.stats.Misses++

	results, err = compute()
	if err != nil {
		return nil, false, err
	}
	c.lru.Add(key, results)
	return results, false, nil
}

// Contains reports whether key is cached without touching recency.
func (c *ResultCache) Contains(key types.QueryKey) bool {
	return c.lru.Contains(key)
}

// Clear drops every entry.
func (c *ResultCache) Clear() {
	c.lru.Purge()
}

// Len returns the number of cached queries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// Stats returns hit and miss counts.
func (c *ResultCache) Stats() Stats {
	return c.stats
}
