// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package worker

import "github.com/pdiddy/docfinder/pkg/types"

// Op names the kind of long-running operation.
type Op string

const (
	OpSearch Op = "search"
	OpIndex  Op = "index"
)

// Message travels from the worker goroutine to the foreground. Every
// operation ends with exactly one terminal message.
type Message interface {
	Operation() Op
	Terminal() bool
}

// StatusMsg carries a one-line status text.
type StatusMsg struct {
	Op   Op
	Text string
}

// ProgressMsg reports progress. Total 0 marks an indeterminate phase.
type ProgressMsg struct {
	Op      Op
	Current int
	Total   int
	Phase   string
	Detail  string
}

// WarningMsg reports a non-fatal problem, usually with a single file.
type WarningMsg struct {
	Op   Op
	Text string
	Path string
	Err  error
}

// SearchDoneMsg ends a successful search.
type SearchDoneMsg struct {
	Query   types.QueryParams
	Results []types.SearchResult

	// Cached is true when the results came from the result cache.
	Cached bool
}

// IndexDoneMsg ends a successful index build.
type IndexDoneMsg struct {
	Summary types.IndexSummary
}

// CancelledMsg ends an operation stopped by Cancel.
type CancelledMsg struct {
	Op Op
}

// FailedMsg ends an operation that returned an error.
type FailedMsg struct {
	Op  Op
	Err error
}

func (m StatusMsg) Operation() Op     { return m.Op }
func (m ProgressMsg) Operation() Op   { return m.Op }
func (m WarningMsg) Operation() Op    { return m.Op }
func (m SearchDoneMsg) Operation() Op { return OpSearch }
func (m IndexDoneMsg) Operation() Op  { return OpIndex }
func (m CancelledMsg) Operation() Op  { return m.Op }
func (m FailedMsg) Operation() Op     { return m.Op }

func (StatusMsg) Terminal() bool     { return false }
func (ProgressMsg) Terminal() bool   { return false }
func (WarningMsg) Terminal() bool    { return false }
func (SearchDoneMsg) Terminal() bool { return true }
func (IndexDoneMsg) Terminal() bool  { return true }
func (CancelledMsg) Terminal() bool  { return true }
func (FailedMsg) Terminal() bool     { return true }
