// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for docfinder: search
// results, query parameters, view state (filter and sort), index events and
// configuration.
package types

import "time"

// MatchSpan locates the first match inside a result's Paragraph as byte
// offsets [Start, End).
type MatchSpan struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// SearchResult is one hit returned by the backend. Results are immutable
// once produced for a given query; the pipeline only ever builds new
// slices that reference them.
type SearchResult struct {
	// FilePath is the canonical index form of the file path. Archive
	// members use "archive::member".
	FilePath string `json:"file_path" yaml:"file_path"`

	// Heading is the section heading the hit was found under, if any.
	Heading string `json:"heading,omitempty" yaml:"heading,omitempty"`

	// Paragraph is an excerpt around the match.
	Paragraph string `json:"paragraph,omitempty" yaml:"paragraph,omitempty"`

	// Match is the first match offset pair inside Paragraph.
	Match *MatchSpan `json:"match,omitempty" yaml:"match,omitempty"`

	// Row holds the column values when the hit comes from a tabular source.
	Row map[string]string `json:"row,omitempty" yaml:"row,omitempty"`

	// Score is the backend relevance score; higher is better.
	Score float64 `json:"score" yaml:"score"`

	// SizeKB is the file size in KiB. Zero means unknown.
	SizeKB int64 `json:"size_kb,omitempty" yaml:"size_kb,omitempty"`

	// Modified is the last-modified time, nil when unknown.
	Modified *time.Time `json:"modified,omitempty" yaml:"modified,omitempty"`

	// FileType is the file-type tag derived from the extension.
	FileType string `json:"file_type" yaml:"file_type"`
}

// IsArchiveMember reports whether the result points inside an archive.
func (r SearchResult) IsArchiveMember() bool {
	for i := 0; i+1 < len(r.FilePath); i++ {
		if r.FilePath[i] == ':' && r.FilePath[i+1] == ':' {
			return true
		}
	}
	return false
}
