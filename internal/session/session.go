// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session is the foreground side of docfinder. It turns worker
// messages into listener callbacks and owns the view state: the original
// results of the last search, the folder tree, the filter and sort, and
// the collapse store.
//
// A Session is not safe for concurrent use. Handle, Run, Wait and the
// setters must all be called from the same goroutine.
package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/docfinder/internal/collapse"
	"github.com/pdiddy/docfinder/internal/folders"
	"github.com/pdiddy/docfinder/internal/logging"
	"github.com/pdiddy/docfinder/internal/pathnorm"
	"github.com/pdiddy/docfinder/internal/pipeline"
	"github.com/pdiddy/docfinder/internal/worker"
	"github.com/pdiddy/docfinder/pkg/types"
)

// CancelledText is the status reported when an operation is cancelled.
const CancelledText = "operation cancelled"

// Listener receives display updates.
type Listener interface {
	OnStatus(text string)
	OnProgress(current, total int, phase, detail string)
	OnResults(results []types.SearchResult, aggregates map[string]int)
	OnError(description string)
}

// Runner is the part of worker.Runner a session drives.
type Runner interface {
	Search(q types.QueryParams) error
	Index(req types.IndexRequest) error
	Cancel()
	Messages() <-chan worker.Message
}

// Config holds session settings.
type Config struct {
	Normalizer pathnorm.Normalizer

	// Sort is the initial ordering. The zero value uses types.DefaultSort.
	Sort types.SortSpec

	// Types is the initial type filter.
	Types []string

	Logger *zerolog.Logger
}

// Session ties a runner to a listener.
type Session struct {
	runner   Runner
	listener Listener
	log      zerolog.Logger

	norm     pathnorm.Normalizer
	pipe     *pipeline.Pipeline
	builder  folders.Builder
	collapse *collapse.Store

	query    types.QueryParams
	original []types.SearchResult
	tree     *folders.Index
	filter   types.FilterState
	sort     types.SortSpec
	out      pipeline.Output
}

// New creates a session. A nil listener discards every update.
func New(runner Runner, listener Listener, cfg Config) *Session {
	if listener == nil {
		listener = nopListener{}
	}
	sort := cfg.Sort
	if sort.Key == "" {
		sort = types.DefaultSort()
	}
	s := &Session{
		runner:   runner,
		listener: listener,
		log:      logging.OrNop(cfg.Logger),
		norm:     cfg.Normalizer,
		pipe:     pipeline.New(pipeline.Config{Normalizer: cfg.Normalizer, Logger: cfg.Logger}),
		builder:  folders.Builder{Normalizer: cfg.Normalizer, Logger: cfg.Logger},
		collapse: collapse.New(),
		filter:   types.NewFilterState(cfg.Types...),
		sort:     sort,
	}
	s.tree = s.builder.Build(nil)
	return s
}

// Search submits a query to the runner.
func (s *Session) Search(q types.QueryParams) error {
	return s.runner.Search(q)
}

// Reindex submits an index build to the runner.
func (s *Session) Reindex(req types.IndexRequest) error {
	return s.runner.Index(req)
}

// Cancel asks the running operation to stop.
func (s *Session) Cancel() {
	s.runner.Cancel()
}

// Handle applies one worker message. It reports whether the message ended
// an operation.
func (s *Session) Handle(msg worker.Message) bool {
	switch m := msg.(type) {
	case worker.StatusMsg:
		s.listener.OnStatus(m.Text)
	case worker.ProgressMsg:
		s.listener.OnProgress(m.Current, m.Total, m.Phase, m.Detail)
	case worker.WarningMsg:
		s.log.Warn().Err(m.Err).Str("path", m.Path).Msg(m.Text)
		s.listener.OnStatus(warningText(m))
	case worker.SearchDoneMsg:
		s.install(m.Query, m.Results)
		s.listener.OnProgress(0, 0, "", "")
		s.listener.OnStatus(foundText(len(m.Results), len(s.out.Results), m.Cached))
	case worker.IndexDoneMsg:
		sum := m.Summary
		s.listener.OnProgress(0, 0, "", "")
		s.listener.OnStatus(fmt.Sprintf("Index updated: %d indexed, %d updated, %d skipped, %d removed, %d failed",
			sum.Indexed, sum.Updated, sum.Skipped, sum.Removed, sum.Failed))
	case worker.CancelledMsg:
		s.log.Info().Str("op", string(m.Op)).Msg("operation cancelled")
		s.listener.OnProgress(0, 0, "", "")
		s.listener.OnStatus(CancelledText)
	case worker.FailedMsg:
		s.log.Error().Err(m.Err).Str("op", string(m.Op)).Msg("operation failed")
		s.listener.OnProgress(0, 0, "", "")
		s.listener.OnError(m.Err.Error())
	}
	return msg.Terminal()
}

// Run pumps runner messages into Handle until ctx is done or the runner
// stops.
func (s *Session) Run(ctx context.Context) error {
	msgs := s.runner.Messages()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			s.Handle(m)
		}
	}
}

// Wait pumps messages until the next terminal message and returns it.
func (s *Session) Wait(ctx context.Context) (worker.Message, error) {
	msgs := s.runner.Messages()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return nil, worker.ErrStopped
			}
			if s.Handle(m) {
				return m, nil
			}
		}
	}
}

// LoadResults installs results as if a search for q had just returned
// them, without calling the backend.
func (s *Session) LoadResults(q types.QueryParams, results []types.SearchResult) {
	s.install(q, results)
}

// install replaces the original results. This is the only place the
// collapse store is reset.
func (s *Session) install(q types.QueryParams, results []types.SearchResult) {
	s.query = q
	s.original = results
	s.tree = s.builder.Build(results)
	s.collapse.Reset()
	if s.filter.Folder != "" {
		if _, ok := s.tree.Select(s.filter.Folder); !ok {
			s.log.Debug().Str("folder", s.filter.Folder).Msg("folder scope cleared by new results")
			s.filter.Folder = ""
		}
	}
	s.refresh()
}

// SetTypes replaces the type filter and re-runs the pipeline.
func (s *Session) SetTypes(tags ...string) {
	s.filter = s.filter.WithTypes(tags...)
	s.refresh()
}

// SetFolder scopes results to folder. An empty folder clears the scope.
func (s *Session) SetFolder(folder string) {
	s.filter = s.filter.WithFolder(s.norm.ForDisplay(folder))
	s.refresh()
}

// SetSort changes the ordering and re-runs the pipeline.
func (s *Session) SetSort(spec types.SortSpec) {
	s.sort = spec
	s.refresh()
}

func (s *Session) refresh() {
	s.out = s.pipe.Apply(s.original, s.filter, s.sort)
	s.listener.OnResults(s.out.Results, s.out.Aggregates)
}

// SelectFolder looks up a folder node by path.
func (s *Session) SelectFolder(path string) (folders.Node, bool) {
	return s.tree.Select(path)
}

// FolderTree returns a snapshot of the folder tree of the original results.
func (s *Session) FolderTree() *folders.TreeNode {
	return s.tree.Tree()
}

// Counts returns per-folder counts of type-matching results including
// descendant folders.
func (s *Session) Counts() map[string]int {
	return s.tree.Rollup(s.out.Aggregates)
}

// Collapse returns the collapse store.
func (s *Session) Collapse() *collapse.Store { return s.collapse }

// Output returns the last pipeline output.
func (s *Session) Output() pipeline.Output { return s.out }

// Original returns the unfiltered results of the last search.
func (s *Session) Original() []types.SearchResult { return s.original }

// Query returns the parameters of the last search.
func (s *Session) Query() types.QueryParams { return s.query }

// Filter returns the current filter state.
func (s *Session) Filter() types.FilterState { return s.filter }

// Sort returns the current ordering.
func (s *Session) Sort() types.SortSpec { return s.sort }

func warningText(m worker.WarningMsg) string {
	switch {
	case m.Path != "" && m.Err != nil:
		return fmt.Sprintf("Warning: %s: %s (%v)", m.Path, m.Text, m.Err)
	case m.Path != "":
		return fmt.Sprintf("Warning: %s: %s", m.Path, m.Text)
	default:
		return "Warning: " + m.Text
	}
}

func foundText(total, shown int, cached bool) string {
	text := fmt.Sprintf("Found %d results", total)
	if shown != total {
		text += fmt.Sprintf(", %d shown", shown)
	}
	if cached {
		text += " (cached)"
	}
	return text
}

type nopListener struct{}

func (nopListener) OnStatus(string)                                 {}
func (nopListener) OnProgress(int, int, string, string)             {}
func (nopListener) OnResults([]types.SearchResult, map[string]int) {}
func (nopListener) OnError(string)                                  {}
