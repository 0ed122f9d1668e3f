// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// IndexEventKind identifies one entry of an index build event stream.
type IndexEventKind string

const (
	EventStatus   IndexEventKind = "status"
	EventProgress IndexEventKind = "progress"
	EventWarning  IndexEventKind = "warning"
	EventError    IndexEventKind = "error"
	EventComplete IndexEventKind = "complete"
)

// IndexEvent is produced lazily by a backend while it builds or updates
// an index.
type IndexEvent struct {
	Kind IndexEventKind

	// Message is the human-readable text for status, warning and error events.
	Message string

	// Current and Total describe progress; Total 0 marks an indeterminate phase.
	Current int
	Total   int

	// Phase is a short label such as "scanning" or "indexing".
	Phase string

	// Detail is usually the file being processed.
	Detail string

	// Path is the file an error or warning refers to.
	Path string

	// Err carries the underlying error for error events.
	Err error

	// Fatal marks an error event that ends the build.
	Fatal bool

	// Summary is set on complete events.
	Summary *IndexSummary
}

// IndexOptions tunes an index build.
type IndexOptions struct {
	// Include lists doublestar glob patterns a file must match (relative to
	// its source dir). Empty includes everything.
	Include []string `json:"include,omitempty" yaml:"include,omitempty" mapstructure:"include"`

	// Exclude lists doublestar glob patterns that skip a file or directory.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty" mapstructure:"exclude"`

	// ExtractTimeout bounds text extraction of a single file.
	ExtractTimeout time.Duration `json:"extract_timeout" yaml:"extract_timeout" mapstructure:"extract_timeout"`

	// MaxFileSizeKB skips content extraction for larger files (0 = no limit).
	MaxFileSizeKB int64 `json:"max_file_size_kb" yaml:"max_file_size_kb" mapstructure:"max_file_size_kb"`
}

// IndexRequest asks a backend to build or update the index at
// IndexLocation from SourceDirs.
type IndexRequest struct {
	SourceDirs    []string
	IndexLocation string
	Options       IndexOptions
}

// IndexSummary holds counts from an index build.
type IndexSummary struct {
	Indexed int `json:"indexed" yaml:"indexed"`
	Updated int `json:"updated" yaml:"updated"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Removed int `json:"removed" yaml:"removed"`
	Failed  int `json:"failed" yaml:"failed"`
}

// Total returns the number of files processed.
func (s IndexSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}
