// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline derives the displayed result list from the original
// results of a search.
//
// Stages run in a fixed order: type filter, folder aggregates, folder
// filter, sort. Aggregates are taken after the type filter and before the
// folder filter, so a folder's count reflects only files of the selected
// types and does not collapse to the scoped folder. The original slice is
// never modified; every Apply builds new slices.
package pipeline

import (
	"cmp"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/docfinder/internal/filetype"
	"github.com/pdiddy/docfinder/internal/logging"
	"github.com/pdiddy/docfinder/internal/pathnorm"
	"github.com/pdiddy/docfinder/pkg/types"
)

// Config holds the collaborators a Pipeline needs.
type Config struct {
	Normalizer pathnorm.Normalizer
	Logger     *zerolog.Logger
}

// Pipeline applies filters and sort to original results.
type Pipeline struct {
	norm pathnorm.Normalizer
	log  zerolog.Logger
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		norm: cfg.Normalizer,
		log:  logging.OrNop(cfg.Logger),
	}
}

// Output is the result of one Apply.
type Output struct {
	// Results is the filtered and sorted list to display.
	Results []types.SearchResult

	// Aggregates maps each containing folder of the type-filtered set to
	// its direct result count.
	Aggregates map[string]int

	// Malformed counts type-matching results whose path has no folder.
	// They are absent from Aggregates and dropped by an active folder scope.
	Malformed int
}

// entry caches the derived fields of one result for the later stages.
type entry struct {
	result types.SearchResult
	folder string
	ok     bool
}

// Apply runs every stage on original.
func (p *Pipeline) Apply(original []types.SearchResult, filter types.FilterState, sort types.SortSpec) Output {
	typed := p.filterTypes(original, filter)
	entries := p.locate(typed)
	aggregates, malformed := aggregate(entries)
	scoped := p.filterFolder(entries, filter.Folder)

	results := make([]types.SearchResult, len(scoped))
	for i, e := range scoped {
		results[i] = e.result
	}
	p.sort(results, sort)

	return Output{
		Results:    results,
		Aggregates: aggregates,
		Malformed:  malformed,
	}
}

// filterTypes keeps results whose derived tag is selected. No selection
// passes everything.
func (p *Pipeline) filterTypes(in []types.SearchResult, filter types.FilterState) []types.SearchResult {
	out := make([]types.SearchResult, 0, len(in))
	for _, r := range in {
		if filter.Allows(filetype.Of(r.FilePath)) {
			out = append(out, r)
		}
	}
	return out
}

// locate computes the containing folder of each result once.
func (p *Pipeline) locate(in []types.SearchResult) []entry {
	out := make([]entry, len(in))
	for i, r := range in {
		folder, err := p.norm.ContainingFolder(r.FilePath)
		if err != nil {
			p.log.Debug().Err(err).Msg("result excluded from folder stages")
		}
		out[i] = entry{result: r, folder: folder, ok: err == nil}
	}
	return out
}

func aggregate(entries []entry) (map[string]int, int) {
	counts := make(map[string]int)
	malformed := 0
	for _, e := range entries {
		if !e.ok {
			malformed++
			continue
		}
		counts[e.folder]++
	}
	return counts, malformed
}

// filterFolder keeps entries inside scope. An empty scope passes
// everything, malformed entries included.
func (p *Pipeline) filterFolder(entries []entry, scope string) []entry {
	if strings.TrimSpace(scope) == "" {
		return entries
	}
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		if e.ok && p.norm.Within(e.folder, scope) {
			out = append(out, e)
		}
	}
	return out
}

// sort orders results in place, stably, so ties keep their prior order.
func (p *Pipeline) sort(results []types.SearchResult, spec types.SortSpec) {
	desc := spec.Descending()
	var compare func(a, b types.SearchResult) int

	switch spec.Key {
	case types.SortPath:
		compare = func(a, b types.SearchResult) int {
			return directed(p.comparePath(a, b), desc)
		}
	case types.SortModified:
		compare = func(a, b types.SearchResult) int {
			return compareModified(a, b, desc)
		}
	case types.SortSize:
		compare = func(a, b types.SearchResult) int {
			return directed(cmp.Compare(a.SizeKB, b.SizeKB), desc)
		}
	default:
		compare = func(a, b types.SearchResult) int {
			return directed(cmp.Compare(a.Score, b.Score), desc)
		}
	}
	slices.SortStableFunc(results, compare)
}

func (p *Pipeline) comparePath(a, b types.SearchResult) int {
	da, db := p.norm.ForDisplay(a.FilePath), p.norm.ForDisplay(b.FilePath)
	if c := strings.Compare(strings.ToLower(da), strings.ToLower(db)); c != 0 {
		return c
	}
	return strings.Compare(da, db)
}

// compareModified sinks unknown dates to the bottom in both directions.
func compareModified(a, b types.SearchResult, desc bool) int {
	switch {
	case a.Modified == nil && b.Modified == nil:
		return 0
	case a.Modified == nil:
		return 1
	case b.Modified == nil:
		return -1
	}
	return directed(a.Modified.Compare(*b.Modified), desc)
}

func directed(c int, desc bool) int {
	if desc {
		return -c
	}
	return c
}
