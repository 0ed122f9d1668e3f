// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package queryfile saves a search with its results and view state so it
// can be reopened and re-filtered later without querying the index.
package queryfile

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docfinder/pkg/types"
)

// File is the on-disk representation of a saved search.
type File struct {
	Query   Params               `yaml:"query"`
	View    View                 `yaml:"view"`
	Results []types.SearchResult `yaml:"results"`
	Summary Summary              `yaml:"summary"`
}

// Params stores the query parameters in a serializable form.
type Params struct {
	Query         string   `yaml:"query"`
	Mode          string   `yaml:"mode,omitempty"`
	Scope         string   `yaml:"scope,omitempty"`
	MinSizeKB     int64    `yaml:"min_size_kb,omitempty"`
	MaxSizeKB     int64    `yaml:"max_size_kb,omitempty"`
	DateFrom      string   `yaml:"date_from,omitempty"`
	DateTo        string   `yaml:"date_to,omitempty"`
	Types         []string `yaml:"types,omitempty"`
	CaseSensitive bool     `yaml:"case_sensitive,omitempty"`
	IndexLocation string   `yaml:"index_location,omitempty"`
}

// View stores the filter and sort in effect when the search was saved.
type View struct {
	Types     []string `yaml:"types,omitempty"`
	Folder    string   `yaml:"folder,omitempty"`
	Sort      string   `yaml:"sort,omitempty"`
	Direction string   `yaml:"direction,omitempty"`
}

// Summary stores result statistics and a timestamp.
type Summary struct {
	Total     int       `yaml:"total"`
	Shown     int       `yaml:"shown"`
	Timestamp time.Time `yaml:"timestamp"`
}

// Write saves q, the view state and the original results to path.
func Write(path string, q types.QueryParams, filter types.FilterState, sort types.SortSpec, results []types.SearchResult, shown int) error {
	qf := File{
		Query: FromQuery(q),
		View: View{
			Types:     filter.SelectedTypes(),
			Folder:    filter.Folder,
			Sort:      string(sort.Key),
			Direction: string(sort.Direction),
		},
		Results: results,
		Summary: Summary{
			Total:     len(results),
			Shown:     shown,
			Timestamp: time.Now(),
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Read loads a previously saved query file from disk.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf File
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// FromQuery converts query parameters into their stored form.
func FromQuery(q types.QueryParams) Params {
	p := Params{
		Query:         q.Query,
		Mode:          string(q.Mode),
		Scope:         string(q.Scope),
		MinSizeKB:     q.MinSizeKB,
		MaxSizeKB:     q.MaxSizeKB,
		Types:         types.NormalizeTags(q.Types),
		CaseSensitive: q.CaseSensitive,
		IndexLocation: q.IndexLocation,
	}
	if q.From != nil {
		p.DateFrom = q.From.Format(types.DateFormat)
	}
	if q.To != nil {
		p.DateTo = q.To.Format(types.DateFormat)
	}
	if len(p.Types) == 0 {
		p.Types = nil
	}
	return p
}

// ToQuery converts stored parameters back into query parameters.
func (p Params) ToQuery() (types.QueryParams, error) {
	q := types.QueryParams{
		Query:         p.Query,
		Mode:          types.SearchMode(p.Mode),
		Scope:         types.SearchScope(p.Scope),
		MinSizeKB:     p.MinSizeKB,
		MaxSizeKB:     p.MaxSizeKB,
		Types:         p.Types,
		CaseSensitive: p.CaseSensitive,
		IndexLocation: p.IndexLocation,
	}
	if p.DateFrom != "" {
		t, err := time.Parse(types.DateFormat, p.DateFrom)
		if err != nil {
			return q, fmt.Errorf("invalid date_from %q: %w", p.DateFrom, err)
		}
		q.From = &t
	}
	if p.DateTo != "" {
		t, err := time.Parse(types.DateFormat, p.DateTo)
		if err != nil {
			return q, fmt.Errorf("invalid date_to %q: %w", p.DateTo, err)
		}
		q.To = &t
	}
	return q, nil
}

// Filter returns the saved filter state.
func (v View) Filter() types.FilterState {
	return types.NewFilterState(v.Types...).WithFolder(v.Folder)
}

// SortSpec returns the saved ordering, or the default when none was saved
// or the saved one is not recognized.
func (v View) SortSpec() types.SortSpec {
	return types.ViewConfig{Sort: v.Sort, Direction: v.Direction}.SortSpec()
}
