// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SearchMode selects how the query string is matched.
type SearchMode string

const (
	ModeExact SearchMode = "exact"
	ModeFuzzy SearchMode = "fuzzy"
)

// SearchScope selects what the query string is matched against.
type SearchScope string

const (
	ScopeFullText SearchScope = "fulltext"
	ScopeFilename SearchScope = "filename"
)

// DateFormat is the ISO date layout used in cache keys, flags and saved
// query files.
const DateFormat = "2006-01-02"

// unsetSentinel stands in for an unset date or size bound in a QueryKey.
const unsetSentinel = "-"

// QueryParams holds every input of a backend search.
type QueryParams struct {
	Query         string      `json:"query" yaml:"query"`
	Mode          SearchMode  `json:"mode" yaml:"mode"`
	Scope         SearchScope `json:"scope" yaml:"scope"`
	MinSizeKB     int64       `json:"min_size_kb,omitempty" yaml:"min_size_kb,omitempty"`
	MaxSizeKB     int64       `json:"max_size_kb,omitempty" yaml:"max_size_kb,omitempty"`
	From          *time.Time  `json:"from,omitempty" yaml:"from,omitempty"`
	To            *time.Time  `json:"to,omitempty" yaml:"to,omitempty"`
	Types         []string    `json:"types,omitempty" yaml:"types,omitempty"`
	CaseSensitive bool        `json:"case_sensitive,omitempty" yaml:"case_sensitive,omitempty"`
	IndexLocation string      `json:"index_location" yaml:"index_location"`
}

// QueryKey is the comparable, order-independent form of QueryParams used
// as a cache key.
type QueryKey struct {
	Query         string
	Mode          SearchMode
	Scope         SearchScope
	MinSizeKB     string
	MaxSizeKB     string
	From          string
	To            string
	Types         string
	CaseSensitive bool
	IndexLocation string
}

// ErrInvalidQuery is returned by Validate for parameters that cannot form
// a meaningful query.
var ErrInvalidQuery = errors.New("invalid query")

// Validate checks the parameters for values that cannot form a key or a
// backend call.
func (q QueryParams) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("%w: query is empty", ErrInvalidQuery)
	}
	switch q.mode() {
	case ModeExact, ModeFuzzy:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidQuery, q.Mode)
	}
	switch q.scope() {
	case ScopeFullText, ScopeFilename:
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidQuery, q.Scope)
	}
	if q.MinSizeKB < 0 || q.MaxSizeKB < 0 {
		return fmt.Errorf("%w: negative size bound", ErrInvalidQuery)
	}
	if q.MaxSizeKB > 0 && q.MinSizeKB > q.MaxSizeKB {
		return fmt.Errorf("%w: min size %d KB exceeds max size %d KB", ErrInvalidQuery, q.MinSizeKB, q.MaxSizeKB)
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return fmt.Errorf("%w: start date %s is after end date %s",
			ErrInvalidQuery, q.From.Format(DateFormat), q.To.Format(DateFormat))
	}
	return nil
}

// Key returns the canonical cache key. Type tags are lower-cased,
// de-duplicated and sorted so construction order never matters.
func (q QueryParams) Key() QueryKey {
	return QueryKey{
		Query:         q.Query,
		Mode:          q.mode(),
		Scope:         q.scope(),
		MinSizeKB:     sizeKey(q.MinSizeKB),
		MaxSizeKB:     sizeKey(q.MaxSizeKB),
		From:          dateKey(q.From),
		To:            dateKey(q.To),
		Types:         strings.Join(NormalizeTags(q.Types), ","),
		CaseSensitive: q.CaseSensitive,
		IndexLocation: q.IndexLocation,
	}
}

// mode defaults an empty mode to fuzzy.
func (q QueryParams) mode() SearchMode {
	if q.Mode == "" {
		return ModeFuzzy
	}
	return q.Mode
}

// scope defaults an empty scope to full-text.
func (q QueryParams) scope() SearchScope {
	if q.Scope == "" {
		return ScopeFullText
	}
	return q.Scope
}

// EffectiveMode returns the mode with the default applied.
func (q QueryParams) EffectiveMode() SearchMode { return q.mode() }

// EffectiveScope returns the scope with the default applied.
func (q QueryParams) EffectiveScope() SearchScope { return q.scope() }

// NormalizeTags lower-cases, trims, de-duplicates and sorts file-type tags.
// Leading dots are dropped so ".pdf" and "pdf" are the same tag.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(t)), ".")
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func dateKey(t *time.Time) string {
	if t == nil {
		return unsetSentinel
	}
	return t.Format(DateFormat)
}

func sizeKey(kb int64) string {
	if kb <= 0 {
		return unsetSentinel
	}
	return fmt.Sprintf("%d", kb)
}
