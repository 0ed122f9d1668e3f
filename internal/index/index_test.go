// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docfinder/internal/pathnorm"
	"github.com/pdiddy/docfinder/pkg/types"
)

// --- test helpers ---

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range members {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()})
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// fixture lays out a small document tree and returns the source dir and
// index location.
func fixture(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "docs")

	writeFile(t, filepath.Join(src, "plans", "a.md"),
		"# Budget\n\nQuarterly budget review for the team.\n\n## Travel\n\nFlights and hotels.\n")
	writeFile(t, filepath.Join(src, "notes.txt"), "Nothing to see here.\n")
	writeFile(t, filepath.Join(src, "data.csv"), "name,price\nWidget,3\nGadget,5\n")
	writeFile(t, filepath.Join(src, "report.pdf"), "%PDF-1.4 not really text")
	writeFile(t, filepath.Join(src, "page.html"),
		`<html><head><title>Guide</title><script>alert("pwned")</script></head>`+
			`<body><h1>Install steps</h1><p>Run the installer twice.</p></body></html>`)
	writeZip(t, filepath.Join(src, "archive.zip"), map[string]string{
		"inner/readme.txt": "A buried treasure map.",
		"inner/photo.png":  "not text",
	})
	return src, filepath.Join(root, "idx")
}

func openStore(t *testing.T, location string) *Store {
	t.Helper()
	st, err := Open(location, Config{Normalizer: pathnorm.Default()})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func request(location string, dirs ...string) types.IndexRequest {
	return types.IndexRequest{
		SourceDirs:    dirs,
		IndexLocation: location,
		Options:       types.IndexOptions{ExtractTimeout: 10 * time.Second},
	}
}

func build(t *testing.T, st *Store, req types.IndexRequest) ([]types.IndexEvent, types.IndexSummary) {
	t.Helper()
	var (
		events  []types.IndexEvent
		summary *types.IndexSummary
	)
	for ev := range st.Build(context.Background(), req) {
		require.False(t, ev.Fatal, "fatal event: %s %v", ev.Message, ev.Err)
		events = append(events, ev)
		if ev.Kind == types.EventComplete {
			summary = ev.Summary
		}
	}
	require.NotNil(t, summary, "no complete event")
	return events, *summary
}

func search(t *testing.T, st *Store, q types.QueryParams) []types.SearchResult {
	t.Helper()
	res, err := st.Search(context.Background(), q)
	require.NoError(t, err)
	return res
}

func filePaths(rs []types.SearchResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = filepath.Base(strings.ReplaceAll(r.FilePath, "::", "/"))
	}
	return out
}

// --- build ---

func TestBuildIndexesEveryFile(t *testing.T) {
	src, loc := fixture(t)
	st := openStore(t, loc)

	events, summary := build(t, st, request(loc, src))
	assert.Equal(t, types.IndexSummary{Indexed: 6}, summary)

	var progress []types.IndexEvent
	for _, ev := range events {
		if ev.Kind == types.EventProgress {
			progress = append(progress, ev)
		}
	}
	require.Len(t, progress, 7)
	assert.Equal(t, "scanning", progress[0].Phase)
	assert.Zero(t, progress[0].Total)
	for i, ev := range progress[1:] {
		assert.Equal(t, i+1, ev.Current)
		assert.Equal(t, 6, ev.Total)
		assert.Equal(t, "indexing", ev.Phase)
	}

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Sources)
	assert.Equal(t, 8, stats.Files, "six files plus two archive members")
	assert.Equal(t, 1, stats.ByType["pdf"])
	assert.Equal(t, 1, stats.ByType["png"]+stats.ByType["other"])
}

func TestBuildIsIncremental(t *testing.T) {
	src, loc := fixture(t)
	st := openStore(t, loc)
	build(t, st, request(loc, src))

	_, summary := build(t, st, request(loc, src))
	assert.Equal(t, types.IndexSummary{Skipped: 6}, summary)

	notes := filepath.Join(src, "notes.txt")
	writeFile(t, notes, "Now this mentions the budget too.\n")
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(notes, later, later))
	require.NoError(t, os.Remove(filepath.Join(src, "data.csv")))

	_, summary = build(t, st, request(loc, src))
	assert.Equal(t, types.IndexSummary{Updated: 1, Skipped: 4, Removed: 1}, summary)

	res := search(t, st, types.QueryParams{Query: "budget"})
	assert.ElementsMatch(t, []string{"a.md", "notes.txt"}, filePaths(res))
	assert.Empty(t, search(t, st, types.QueryParams{Query: "widget"}))
}

func TestBuildOtherSourceKeepsEntries(t *testing.T) {
	src, loc := fixture(t)
	other := filepath.Join(filepath.Dir(src), "other")
	writeFile(t, filepath.Join(other, "x.txt"), "budget elsewhere")
	st := openStore(t, loc)
	build(t, st, request(loc, src))

	_, summary := build(t, st, request(loc, other))
	assert.Equal(t, types.IndexSummary{Indexed: 1}, summary)
	assert.Len(t, search(t, st, types.QueryParams{Query: "budget"}), 2)
}

func TestBuildIncludeExclude(t *testing.T) {
	src, loc := fixture(t)
	writeFile(t, filepath.Join(src, "skip", "hidden.txt"), "budget secrets")
	st := openStore(t, loc)

	req := request(loc, src)
	req.Options.Include = []string{"**/*.md", "**/*.txt"}
	req.Options.Exclude = []string{"skip/**"}
	_, summary := build(t, st, req)
	assert.Equal(t, 2, summary.Indexed, "a.md and notes.txt")

	res := search(t, st, types.QueryParams{Query: "budget"})
	assert.Equal(t, []string{"a.md"}, filePaths(res))
}

func TestBuildRejectsBadPattern(t *testing.T) {
	_, loc := fixture(t)
	st := openStore(t, loc)
	req := request(loc, t.TempDir())
	req.Options.Exclude = []string{"[unclosed"}

	var fatal *types.IndexEvent
	for ev := range st.Build(context.Background(), req) {
		if ev.Fatal {
			fatal = &ev
		}
	}
	require.NotNil(t, fatal)
	assert.Contains(t, fatal.Message, "[unclosed")
}

func TestBuildMissingSourceDir(t *testing.T) {
	_, loc := fixture(t)
	st := openStore(t, loc)

	var errs int
	for ev := range st.Build(context.Background(), request(loc, filepath.Join(t.TempDir(), "nope"))) {
		if ev.Kind == types.EventError {
			errs++
			assert.False(t, ev.Fatal)
		}
	}
	assert.Equal(t, 1, errs)
}

func TestBuildKeepsEntriesOfUnreachableSource(t *testing.T) {
	src, loc := fixture(t)
	st := openStore(t, loc)
	build(t, st, request(loc, src))

	// An unmounted drive looks like a missing root.
	require.NoError(t, os.Rename(src, src+".offline"))
	events, summary := build(t, st, request(loc, src))
	assert.Zero(t, summary.Removed)

	var errs int
	for _, ev := range events {
		if ev.Kind == types.EventError {
			errs++
		}
	}
	assert.Equal(t, 1, errs)

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Sources)
	assert.Len(t, search(t, st, types.QueryParams{Query: "budget"}), 1)
}

func TestBuildStopsWhenConsumerStops(t *testing.T) {
	src, loc := fixture(t)
	st := openStore(t, loc)

	seen := 0
	for ev := range st.Build(context.Background(), request(loc, src)) {
		if ev.Kind == types.EventProgress && ev.Current == 2 {
			break
		}
		seen++
	}
	assert.Positive(t, seen)

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sources, "only the first file was written")
}

// --- search ---

func TestSearchFullText(t *testing.T) {
	src, loc := fixture(t)
	st := openStore(t, loc)
	build(t, st, request(loc, src))

	res := search(t, st, types.QueryParams{Query: "budget"})
	require.Len(t, res, 1)
	r := res[0]
	assert.Equal(t, pathnorm.ForIndex(filepath.Join(src, "plans", "a.md")), r.FilePath)
	assert.Equal(t, "Budget", r.Heading)
	assert.Equal(t, "md", r.FileType)
	assert.Positive(t, r.Score)
	assert.NotNil(t, r.Modified)
	assert.Positive(t, r.SizeKB)
	require.NotNil(t, r.Match)
	assert.Equal(t, "budget", r.Paragraph[r.Match.Start:r.Match.End])
}

func TestSearchModes(t *testing.T) {
	src, loc := fixture(t)
	st := openStore(t, loc)
	build(t, st, request(loc, src))

	assert.Len(t, search(t, st, types.QueryParams{Query: "budg"}), 1, "fuzzy matches prefixes")
	assert.Empty(t, search(t, st, types.QueryParams{Query: "budg", Mode: types.ModeExact}))
	assert.Len(t, search(t, st, types.QueryParams{Query: "budget review", Mode: types.ModeExact}), 1)
	assert.Empty(t, search(t, st, types.QueryParams{Query: "review budget", Mode: types.ModeExact}))
}

func TestSearchCaseSensitive(t *testing.T) {
	src, loc := fixture(t)
	st := openStore(t, loc)
	build(t, st, request(loc, src))

	assert.Len(t, search(t, st, types.QueryParams{Query: "Quarterly", CaseSensitive: true}), 1)
	assert.Empty(t, search(t, st, types.QueryParams{Query: "QUARTERLY", CaseSensitive: true}))
	assert.Len(t, search(t, st, types.QueryParams{Query: "QUARTERLY"}), 1)
}

func TestSearchStructuredRows(t *testing.T) {
	src, loc := fixture(t)
	st := openStore(t, loc)
	build(t, st, request(loc, src))

	res := search(t, st, types.QueryParams{Query: "widget"})
	require.Len(t, res, 1)
	assert.Equal(t, map[string]string{"name": "Widget", "price": "3"}, res[0].Row)
	assert.Equal(t, "row 1", res[0].Heading)
	assert.Equal(t, "csv", res[0].FileType)
}

func TestSearchArchiveMembers(t *testing.T) {
	src, loc := fixture(t)
	st := openStore(t, loc)
	build(t, st, request(loc, src))

	res := search(t, st, types.QueryParams{Query: "treasure"})
	require.Len(t, res, 1)
	assert.True(t, res[0].IsArchiveMember())
	assert.True(t, strings.HasSuffix(res[0].FilePath, "archive.zip::inner/readme.txt"), res[0].FilePath)
	assert.Equal(t, "txt", res[0].FileType)
}

func TestSearchHTML(t *testing.T) {
	src, loc := fixture(t)
	st := openStore(t, loc)
	build(t, st, request(loc, src))

	res := search(t, st, types.QueryParams{Query: "installer"})
	require.Len(t, res, 1)
	assert.Equal(t, "Install steps", res[0].Heading)
	assert.Empty(t, search(t, st, types.QueryParams{Query: "pwned"}), "scripts are not indexed")
}

func TestSearchFilename(t *testing.T) {
	src, loc := fixture(t)
	st := openStore(t, loc)
	build(t, st, request(loc, src))

	res := search(t, st, types.QueryParams{Query: "REPORT", Scope: types.ScopeFilename})
	assert.Equal(t, []string{"report.pdf"}, filePaths(res))

	res = search(t, st, types.QueryParams{Query: "readme", Scope: types.ScopeFilename})
	require.Len(t, res, 1)
	assert.True(t, res[0].IsArchiveMember())

	assert.Empty(t, search(t, st, types.QueryParams{Query: "REPORT", Scope: types.ScopeFilename, CaseSensitive: true}))
}

func TestSearchFilters(t *testing.T) {
	src, loc := fixture(t)
	old := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(src, "report.pdf"), old, old))
	st := openStore(t, loc)
	build(t, st, request(loc, src))

	dotted := types.QueryParams{Query: ".", Scope: types.ScopeFilename}

	byType := dotted
	byType.Types = []string{"PDF", "csv"}
	assert.ElementsMatch(t, []string{"report.pdf", "data.csv"}, filePaths(search(t, st, byType)))

	to := time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)
	byDate := dotted
	byDate.To = &to
	assert.Equal(t, []string{"report.pdf"}, filePaths(search(t, st, byDate)))

	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	byDate = dotted
	byDate.From = &from
	assert.NotContains(t, filePaths(search(t, st, byDate)), "report.pdf")

	bySize := dotted
	bySize.MinSizeKB = 100
	assert.Empty(t, search(t, st, bySize))
}

func TestSearchRejectsInvalidQuery(t *testing.T) {
	_, loc := fixture(t)
	st := openStore(t, loc)
	_, err := st.Search(context.Background(), types.QueryParams{Query: ""})
	assert.ErrorIs(t, err, types.ErrInvalidQuery)
}

// --- backend ---

func TestBackendMissingIndex(t *testing.T) {
	b := NewBackend(Config{Normalizer: pathnorm.Default()})
	t.Cleanup(func() { b.Close() })

	_, err := b.Search(context.Background(), types.QueryParams{Query: "x", IndexLocation: filepath.Join(t.TempDir(), "none")})
	assert.True(t, errors.Is(err, ErrNoIndex), "got %v", err)
}

func TestBackendBuildThenSearch(t *testing.T) {
	src, loc := fixture(t)
	b := NewBackend(Config{Normalizer: pathnorm.Default(), MaxResults: 10})
	t.Cleanup(func() { b.Close() })

	var done bool
	for ev := range b.BuildOrUpdateIndex(context.Background(), request(loc, src)) {
		require.False(t, ev.Fatal)
		done = done || ev.Kind == types.EventComplete
	}
	require.True(t, done)

	res, err := b.Search(context.Background(), types.QueryParams{Query: "treasure", IndexLocation: loc})
	require.NoError(t, err)
	assert.Len(t, res, 1)

	stats, err := b.Stats(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Sources)
}
