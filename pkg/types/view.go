// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// FilterState is the live view filter applied on top of the original
// results. It never references UI objects; the mapping from a tag to a
// control belongs to the UI layer.
type FilterState struct {
	// Types is the set of selected file-type tags. Empty means no
	// restriction.
	Types map[string]bool `json:"types,omitempty" yaml:"types,omitempty"`

	// Folder is the active folder scope in display form. Empty means no
	// folder scope.
	Folder string `json:"folder,omitempty" yaml:"folder,omitempty"`
}

// NewFilterState returns a filter restricted to the given tags.
func NewFilterState(tags ...string) FilterState {
	return FilterState{}.WithTypes(tags...)
}

// WithTypes returns a copy of f whose type set is exactly tags.
func (f FilterState) WithTypes(tags ...string) FilterState {
	norm := NormalizeTags(tags)
	if len(norm) == 0 {
		f.Types = nil
		return f
	}
	f.Types = make(map[string]bool, len(norm))
	for _, t := range norm {
		f.Types[t] = true
	}
	return f
}

// WithFolder returns a copy of f scoped to folder.
func (f FilterState) WithFolder(folder string) FilterState {
	f.Folder = folder
	return f
}

// HasTypeRestriction reports whether at least one tag is selected.
func (f FilterState) HasTypeRestriction() bool {
	for _, on := range f.Types {
		if on {
			return true
		}
	}
	return false
}

// Allows reports whether tag passes the type filter.
func (f FilterState) Allows(tag string) bool {
	if !f.HasTypeRestriction() {
		return true
	}
	return f.Types[tag]
}

// SelectedTypes returns the selected tags, sorted.
func (f FilterState) SelectedTypes() []string {
	tags := make([]string, 0, len(f.Types))
	for t, on := range f.Types {
		if on {
			tags = append(tags, t)
		}
	}
	return NormalizeTags(tags)
}

// SortKey selects the field results are ordered by.
type SortKey string

const (
	SortRelevance SortKey = "relevance"
	SortPath      SortKey = "path"
	SortModified  SortKey = "modified"
	SortSize      SortKey = "size"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// SortSpec is the requested ordering.
type SortSpec struct {
	Key       SortKey       `json:"key" yaml:"key"`
	Direction SortDirection `json:"direction" yaml:"direction"`
}

// DefaultSort orders by relevance, best first.
func DefaultSort() SortSpec {
	return SortSpec{Key: SortRelevance, Direction: Descending}
}

// Descending reports whether s orders from largest to smallest.
func (s SortSpec) Descending() bool {
	return s.Direction != Ascending
}

// ParseSortKey accepts the sort key names used by flags and config files.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "relevance", "score":
		return SortRelevance, nil
	case "path", "name":
		return SortPath, nil
	case "modified", "date", "mtime":
		return SortModified, nil
	case "size":
		return SortSize, nil
	default:
		return "", fmt.Errorf("unknown sort key %q: use relevance, path, modified, or size", s)
	}
}

// ParseDirection accepts "asc"/"ascending" and "desc"/"descending".
func ParseDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q: use asc or desc", s)
	}
}
