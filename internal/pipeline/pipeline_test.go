// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docfinder/internal/pathnorm"
	"github.com/pdiddy/docfinder/pkg/types"
)

func newPipeline() *Pipeline {
	return New(Config{Normalizer: pathnorm.Lexical(pathnorm.StylePOSIX)})
}

func paths(rs []types.SearchResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.FilePath
	}
	return out
}

func date(s string) *time.Time {
	t, err := time.Parse(types.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// fiveFiles is 2 pdf and 1 docx in /A, 2 txt in /B.
func fiveFiles() []types.SearchResult {
	return []types.SearchResult{
		{FilePath: "/A/one.pdf", Score: 0.9},
		{FilePath: "/A/two.pdf", Score: 0.8},
		{FilePath: "/A/three.docx", Score: 0.7},
		{FilePath: "/B/four.txt", Score: 0.6},
		{FilePath: "/B/five.txt", Score: 0.5},
	}
}

func TestEndToEndFilterScenario(t *testing.T) {
	p := newPipeline()
	original := fiveFiles()
	sort := types.DefaultSort()

	filter := types.NewFilterState("pdf")
	out := p.Apply(original, filter, sort)
	assert.Equal(t, []string{"/A/one.pdf", "/A/two.pdf"}, paths(out.Results))
	assert.Equal(t, map[string]int{"/A": 2}, out.Aggregates)

	filter = filter.WithFolder("/A")
	out = p.Apply(original, filter, sort)
	assert.Len(t, out.Results, 2)
	assert.Equal(t, map[string]int{"/A": 2}, out.Aggregates)

	filter = filter.WithTypes()
	out = p.Apply(original, filter, sort)
	// Folder scope /A still excludes /B, and the docx in /A comes back.
	assert.Equal(t, []string{"/A/one.pdf", "/A/two.pdf", "/A/three.docx"}, paths(out.Results))
	assert.Equal(t, map[string]int{"/A": 3, "/B": 2}, out.Aggregates)
}

func TestEndToEndPDFScopeOnly(t *testing.T) {
	p := newPipeline()
	original := fiveFiles()[:2]
	original = append(original, fiveFiles()[3:]...)

	filter := types.NewFilterState("pdf").WithFolder("/A")
	out := p.Apply(original, filter, types.DefaultSort())
	require.Len(t, out.Results, 2)

	out = p.Apply(original, filter.WithTypes(), types.DefaultSort())
	assert.Equal(t, []string{"/A/one.pdf", "/A/two.pdf"}, paths(out.Results))
}

func TestStageOrderIsLoadBearing(t *testing.T) {
	p := newPipeline()
	original := append(fiveFiles(), types.SearchResult{FilePath: "/B/six.pdf"})
	filter := types.NewFilterState("pdf").WithFolder("/A")

	got := p.Apply(original, filter, types.DefaultSort()).Aggregates
	assert.Equal(t, map[string]int{"/A": 2, "/B": 1}, got)

	// Folder filter first, then type filter, then aggregates.
	scoped := p.filterFolder(p.locate(original), filter.Folder)
	scopedResults := make([]types.SearchResult, len(scoped))
	for i, e := range scoped {
		scopedResults[i] = e.result
	}
	reversed, _ := aggregate(p.locate(p.filterTypes(scopedResults, filter)))
	assert.Equal(t, map[string]int{"/A": 2}, reversed)
	assert.NotEqual(t, got, reversed)

	// Folder filter first with aggregates before the type filter.
	early, _ := aggregate(scoped)
	assert.Equal(t, map[string]int{"/A": 3}, early)
	assert.NotEqual(t, got, early)
}

func TestTypeFilter(t *testing.T) {
	p := newPipeline()
	original := []types.SearchResult{
		{FilePath: "/w/page.htm"},
		{FilePath: "/w/page.HTML"},
		{FilePath: "/w/x.zip::inner/notes.txt"},
		{FilePath: "/w/backup.tar.gz"},
	}

	tests := []struct {
		name string
		tags []string
		want []string
	}{
		{"no restriction", nil, paths(original)},
		{"htm folds into html", []string{"html"}, []string{"/w/page.htm", "/w/page.HTML"}},
		{"archive member uses member extension", []string{"txt"}, []string{"/w/x.zip::inner/notes.txt"}},
		{"longest suffix", []string{"tar.gz"}, []string{"/w/backup.tar.gz"}},
		{"no match", []string{"pdf"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := p.Apply(original, types.NewFilterState(tt.tags...), types.SortSpec{Key: types.SortPath, Direction: types.Ascending})
			got := paths(out.Results)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestFolderFilterRespectsSeparators(t *testing.T) {
	p := newPipeline()
	original := []types.SearchResult{
		{FilePath: "/Foo/a.txt"},
		{FilePath: "/Foo/sub/b.txt"},
		{FilePath: "/Foo2/c.txt"},
		{FilePath: "/Foo/x.zip::deep/d.txt"},
	}
	out := p.Apply(original, types.FilterState{Folder: "/Foo/"}, types.SortSpec{Key: types.SortPath, Direction: types.Ascending})
	assert.Equal(t, []string{"/Foo/a.txt", "/Foo/sub/b.txt", "/Foo/x.zip::deep/d.txt"}, paths(out.Results))
	assert.Equal(t, map[string]int{"/Foo": 2, "/Foo/sub": 1, "/Foo2": 1}, out.Aggregates)
}

func TestMalformedEntries(t *testing.T) {
	p := newPipeline()
	original := []types.SearchResult{
		{FilePath: "/A/ok.txt"},
		{FilePath: "orphan.txt"},
	}

	out := p.Apply(original, types.FilterState{}, types.DefaultSort())
	assert.Len(t, out.Results, 2, "malformed entries stay in the list")
	assert.Equal(t, 1, out.Malformed)
	assert.Equal(t, map[string]int{"/A": 1}, out.Aggregates)

	out = p.Apply(original, types.FilterState{Folder: "/A"}, types.DefaultSort())
	assert.Equal(t, []string{"/A/ok.txt"}, paths(out.Results))
}

func TestSortModifiedMissingSinks(t *testing.T) {
	p := newPipeline()
	original := []types.SearchResult{
		{FilePath: "b", Modified: nil},
		{FilePath: "a", Modified: date("2020-01-01")},
		{FilePath: "c", Modified: nil},
	}

	for _, dir := range []types.SortDirection{types.Descending, types.Ascending} {
		t.Run(string(dir), func(t *testing.T) {
			out := p.Apply(original, types.FilterState{}, types.SortSpec{Key: types.SortModified, Direction: dir})
			assert.Equal(t, []string{"a", "b", "c"}, paths(out.Results))
		})
	}
}

func TestSortModifiedOrder(t *testing.T) {
	p := newPipeline()
	original := []types.SearchResult{
		{FilePath: "/old", Modified: date("2019-05-01")},
		{FilePath: "/none"},
		{FilePath: "/new", Modified: date("2024-05-01")},
	}
	desc := p.Apply(original, types.FilterState{}, types.SortSpec{Key: types.SortModified, Direction: types.Descending})
	assert.Equal(t, []string{"/new", "/old", "/none"}, paths(desc.Results))

	asc := p.Apply(original, types.FilterState{}, types.SortSpec{Key: types.SortModified, Direction: types.Ascending})
	assert.Equal(t, []string{"/old", "/new", "/none"}, paths(asc.Results))
}

func TestSortSizeMissingIsZero(t *testing.T) {
	p := newPipeline()
	original := []types.SearchResult{
		{FilePath: "/big", SizeKB: 900},
		{FilePath: "/unknown"},
		{FilePath: "/small", SizeKB: 3},
	}
	out := p.Apply(original, types.FilterState{}, types.SortSpec{Key: types.SortSize, Direction: types.Ascending})
	assert.Equal(t, []string{"/unknown", "/small", "/big"}, paths(out.Results))

	out = p.Apply(original, types.FilterState{}, types.SortSpec{Key: types.SortSize, Direction: types.Descending})
	assert.Equal(t, []string{"/big", "/small", "/unknown"}, paths(out.Results))
}

func TestSortPathAndRelevanceStable(t *testing.T) {
	p := newPipeline()
	original := []types.SearchResult{
		{FilePath: "/b.txt", Score: 1},
		{FilePath: "/A.txt", Score: 2},
		{FilePath: "/c.txt", Score: 1},
		{FilePath: "/a2.txt", Score: 2},
	}

	byPath := p.Apply(original, types.FilterState{}, types.SortSpec{Key: types.SortPath, Direction: types.Ascending})
	assert.Equal(t, []string{"/A.txt", "/a2.txt", "/b.txt", "/c.txt"}, paths(byPath.Results))

	byScore := p.Apply(original, types.FilterState{}, types.DefaultSort())
	assert.Equal(t, []string{"/A.txt", "/a2.txt", "/b.txt", "/c.txt"}, paths(byScore.Results))

	asc := p.Apply(original, types.FilterState{}, types.SortSpec{Key: types.SortRelevance, Direction: types.Ascending})
	assert.Equal(t, []string{"/b.txt", "/c.txt", "/A.txt", "/a2.txt"}, paths(asc.Results))
}

func TestApplyDoesNotMutateOriginal(t *testing.T) {
	p := newPipeline()
	original := fiveFiles()
	before := paths(original)

	_ = p.Apply(original, types.NewFilterState("txt"), types.SortSpec{Key: types.SortPath, Direction: types.Ascending})
	_ = p.Apply(original, types.FilterState{}, types.SortSpec{Key: types.SortSize})

	assert.Equal(t, before, paths(original))
}
