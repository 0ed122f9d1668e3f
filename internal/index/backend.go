// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"sync"

	"github.com/pdiddy/docfinder/pkg/types"
)

// Backend serves searches and index builds for any number of index
// locations, opening each database on first use.
type Backend struct {
	cfg Config

	mu     sync.Mutex
	stores map[string]*Store
}

// NewBackend creates a backend. Stores are opened lazily.
func NewBackend(cfg Config) *Backend {
	return &Backend{cfg: cfg, stores: make(map[string]*Store)}
}

// Search runs q against the index at q.IndexLocation.
func (b *Backend) Search(ctx context.Context, q types.QueryParams) ([]types.SearchResult, error) {
	st, err := b.store(q.IndexLocation, false)
	if err != nil {
		return nil, err
	}
	return st.Search(ctx, q)
}

// BuildOrUpdateIndex builds or updates the index at req.IndexLocation.
func (b *Backend) BuildOrUpdateIndex(ctx context.Context, req types.IndexRequest) iter.Seq[types.IndexEvent] {
	st, err := b.store(req.IndexLocation, true)
	if err != nil {
		return func(yield func(types.IndexEvent) bool) {
			yield(types.IndexEvent{Kind: types.EventError, Message: "opening index", Err: err, Fatal: true})
		}
	}
	return st.Build(ctx, req)
}

// Stats reports the contents of the index at location.
func (b *Backend) Stats(ctx context.Context, location string) (Stats, error) {
	st, err := b.store(location, false)
	if err != nil {
		return Stats{}, err
	}
	return st.Stats(ctx)
}

// Close closes every open store.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var first error
	for loc, st := range b.stores {
		if err := st.Close(); err != nil && first == nil {
			first = fmt.Errorf("closing index %s: %w", loc, err)
		}
		delete(b.stores, loc)
	}
	return first
}

func (b *Backend) store(location string, create bool) (*Store, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: no index location", ErrNoIndex)
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("resolving index location: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.stores[abs]; ok {
		return st, nil
	}

	openFn := OpenExisting
	if create {
		openFn = Open
	}
	st, err := openFn(abs, b.cfg)
	if err != nil {
		return nil, err
	}
	b.stores[abs] = st
	return st, nil
}
