// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package queryfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docfinder/pkg/types"
)

func TestWriteRead(t *testing.T) {
	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	mod := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	q := types.QueryParams{
		Query:         "budget",
		Mode:          types.ModeExact,
		Scope:         types.ScopeFullText,
		MinSizeKB:     4,
		From:          &from,
		Types:         []string{"PDF", "md"},
		CaseSensitive: true,
		IndexLocation: "/idx",
	}
	results := []types.SearchResult{
		{FilePath: "/A/one.pdf", Score: 0.5, Modified: &mod, SizeKB: 12, FileType: "pdf",
			Paragraph: "the budget", Match: &types.MatchSpan{Start: 4, End: 10}},
		{FilePath: "/B/rows.csv", Row: map[string]string{"name": "Widget"}},
	}
	filter := types.NewFilterState("pdf").WithFolder("/A")
	sort := types.SortSpec{Key: types.SortModified, Direction: types.Ascending}

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Write(path, q, filter, sort, results, 1))

	qf, err := Read(path)
	require.NoError(t, err)

	got, err := qf.Query.ToQuery()
	require.NoError(t, err)
	assert.Equal(t, q.Key(), got.Key())
	assert.Equal(t, filter, qf.View.Filter())
	assert.Equal(t, sort, qf.View.SortSpec())

	require.Len(t, qf.Results, 2)
	assert.Equal(t, "/A/one.pdf", qf.Results[0].FilePath)
	assert.True(t, mod.Equal(*qf.Results[0].Modified))
	assert.Equal(t, &types.MatchSpan{Start: 4, End: 10}, qf.Results[0].Match)
	assert.Equal(t, "Widget", qf.Results[1].Row["name"])
	assert.Nil(t, qf.Results[1].Modified)

	assert.Equal(t, 2, qf.Summary.Total)
	assert.Equal(t, 1, qf.Summary.Shown)
	assert.False(t, qf.Summary.Timestamp.IsZero())
}

func TestToQueryBadDate(t *testing.T) {
	_, err := Params{Query: "x", DateTo: "03/04/2024"}.ToQuery()
	assert.Error(t, err)
}

func TestViewDefaults(t *testing.T) {
	var v View
	assert.Equal(t, types.DefaultSort(), v.SortSpec())
	assert.False(t, v.Filter().HasTypeRestriction())

	v.Sort = "bogus"
	assert.Equal(t, types.DefaultSort(), v.SortSpec())
}

func TestReadErrors(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("query: [unterminated"), 0o644))
	_, err = Read(bad)
	assert.Error(t, err)
}
