// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package worker runs slow backend operations on a single background
// goroutine and reports back through a message channel.
//
// At most one operation is in flight. A request made while one is running
// is rejected with ErrBusy; nothing is queued and nothing is pre-empted.
// Cancellation is cooperative: Cancel raises a flag that the worker checks
// before starting, after every index event and right after the backend
// search returns, and it also cancels the operation context so a backend
// that honors ctx can stop early.
//
// The result cache lives here and is touched only by the worker goroutine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/docfinder/internal/cache"
	"github.com/pdiddy/docfinder/internal/logging"
	"github.com/pdiddy/docfinder/pkg/types"
)

// DefaultBuffer is the message channel capacity when none is configured.
const DefaultBuffer = 64

var (
	// ErrBusy rejects a request made while another operation runs.
	ErrBusy = errors.New("another operation is already running")

	// ErrCancelled is raised at a checkpoint once Cancel has been called.
	ErrCancelled = errors.New("operation cancelled")

	// ErrStopped rejects a request after the worker loop has exited.
	ErrStopped = errors.New("worker stopped")
)

// BackendError wraps an error returned by the backend.
type BackendError struct {
	Op  Op
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Backend is the search and indexing engine the worker drives.
type Backend interface {
	// Search runs one query against the index named in q.
	Search(ctx context.Context, q types.QueryParams) ([]types.SearchResult, error)

	// BuildOrUpdateIndex produces events lazily while it works. The
	// sequence is finite and can be consumed once.
	BuildOrUpdateIndex(ctx context.Context, req types.IndexRequest) iter.Seq[types.IndexEvent]
}

// State is the externally visible runner state. The outcome of an
// operation travels in its terminal message.
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Config holds runner settings.
type Config struct {
	// CacheCapacity bounds the result cache. Zero uses cache.DefaultCapacity.
	CacheCapacity int

	// Buffer is the message channel capacity. Zero uses DefaultBuffer.
	Buffer int

	Logger *zerolog.Logger
}

type request struct {
	op    Op
	query types.QueryParams
	index types.IndexRequest
}

// Runner owns the worker goroutine.
type Runner struct {
	backend Backend
	cache   *cache.ResultCache
	log     zerolog.Logger

	requests chan request
	messages chan Message
	done     chan struct{}

	running   atomic.Bool
	cancelled atomic.Bool
	started   atomic.Bool

	mu       sync.Mutex
	cancelOp context.CancelFunc
	ctx      context.Context
}

// New creates a runner. Call Start before submitting requests.
func New(backend Backend, cfg Config) (*Runner, error) {
	if backend == nil {
		return nil, errors.New("worker: nil backend")
	}
	c, err := cache.New(cfg.CacheCapacity)
	if err != nil {
		return nil, err
	}
	buf := cfg.Buffer
	if buf <= 0 {
		buf = DefaultBuffer
	}
	return &Runner{
		backend:  backend,
		cache:    c,
		log:      logging.OrNop(cfg.Logger).With().Str("component", "worker").Logger(),
		requests: make(chan request, 1),
		messages: make(chan Message, buf),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the worker goroutine. It runs until ctx is done, then
// closes the message channel. Calling Start again has no effect.
func (r *Runner) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
	go r.loop(ctx)
}

// Messages returns the worker-to-foreground channel.
func (r *Runner) Messages() <-chan Message {
	return r.messages
}

// State reports whether an operation is in flight.
func (r *Runner) State() State {
	if r.running.Load() {
		return Running
	}
	return Idle
}

// Search submits a query. It fails with types.ErrInvalidQuery before any
// work starts when q cannot form a cache key.
func (r *Runner) Search(q types.QueryParams) error {
	if err := q.Validate(); err != nil {
		return err
	}
	return r.submit(request{op: OpSearch, query: q})
}

// Index submits an index build or update.
func (r *Runner) Index(req types.IndexRequest) error {
	if len(req.SourceDirs) == 0 {
		return errors.New("index: no source directories")
	}
	if strings.TrimSpace(req.IndexLocation) == "" {
		return errors.New("index: no index location")
	}
	return r.submit(request{op: OpIndex, index: req})
}

func (r *Runner) submit(req request) error {
	select {
	case <-r.done:
		return ErrStopped
	default:
	}
	// Cancel takes mu too, so it sees running and the reset flag together.
	r.mu.Lock()
	if !r.running.CompareAndSwap(false, true) {
		r.mu.Unlock()
		return ErrBusy
	}
	r.cancelled.Store(false)
	r.mu.Unlock()
	r.requests <- req
	return nil
}

// Cancel asks the running operation to stop. It is a no-op when idle.
func (r *Runner) Cancel() {
	r.mu.Lock()
	if !r.running.Load() {
		r.mu.Unlock()
		return
	}
	r.cancelled.Store(true)
	cancel := r.cancelOp
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.messages)
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-r.requests:
			r.run(ctx, req)
		}
	}
}

// run executes one request and always delivers one terminal message.
func (r *Runner) run(parent context.Context, req request) {
	ctx, cancel := context.WithCancel(parent)
	r.mu.Lock()
	r.cancelOp = cancel
	r.mu.Unlock()
	if r.cancelled.Load() {
		cancel()
	}

	start := time.Now()
	terminal := r.dispatch(ctx, req)

	r.mu.Lock()
	r.cancelOp = nil
	r.mu.Unlock()
	cancel()

	r.log.Debug().
		Str("op", string(req.op)).
		Dur("elapsed", time.Since(start)).
		Str("outcome", outcome(terminal)).
		Msg("operation finished")

	r.mu.Lock()
	r.running.Store(false)
	r.mu.Unlock()
	r.emit(terminal)
}

// dispatch turns a backend panic into a failure so it never escapes the
// worker goroutine.
func (r *Runner) dispatch(ctx context.Context, req request) (terminal Message) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Str("op", string(req.op)).Msg("backend panicked")
			terminal = FailedMsg{Op: req.op, Err: &BackendError{Op: req.op, Err: fmt.Errorf("panic: %v", p)}}
		}
	}()
	switch req.op {
	case OpIndex:
		return r.runIndex(ctx, req.index)
	default:
		return r.runSearch(ctx, req.query)
	}
}

func (r *Runner) runSearch(ctx context.Context, q types.QueryParams) Message {
	if r.checkpoint(ctx) != nil {
		return CancelledMsg{Op: OpSearch}
	}
	r.emit(StatusMsg{Op: OpSearch, Text: fmt.Sprintf("Searching for %q...", q.Query)})

	results, hit, err := r.cache.GetOrCompute(q.Key(), func() ([]types.SearchResult, error) {
		start := time.Now()
		res, err := r.backend.Search(ctx, q)
		r.log.Debug().Str("query", q.Query).Dur("elapsed", time.Since(start)).Int("results", len(res)).Msg("backend search returned")
		if cerr := r.checkpoint(ctx); cerr != nil {
			return nil, cerr
		}
		if err != nil {
			return nil, &BackendError{Op: OpSearch, Err: err}
		}
		return res, nil
	})
	switch {
	case errors.Is(err, ErrCancelled):
		return CancelledMsg{Op: OpSearch}
	case err != nil:
		return FailedMsg{Op: OpSearch, Err: err}
	}

	if hit {
		r.log.Debug().Str("query", q.Query).Msg("result cache hit")
	}
	return SearchDoneMsg{Query: q, Results: results, Cached: hit}
}

func (r *Runner) runIndex(ctx context.Context, req types.IndexRequest) Message {
	if r.checkpoint(ctx) != nil {
		return CancelledMsg{Op: OpIndex}
	}
	r.cache.Clear()
	r.emit(StatusMsg{Op: OpIndex, Text: "Indexing " + strings.Join(req.SourceDirs, ", ") + "..."})

	var summary types.IndexSummary
	for ev := range r.backend.BuildOrUpdateIndex(ctx, req) {
		switch ev.Kind {
		case types.EventStatus:
			r.emit(StatusMsg{Op: OpIndex, Text: ev.Message})
		case types.EventProgress:
			r.emit(ProgressMsg{Op: OpIndex, Current: ev.Current, Total: ev.Total, Phase: ev.Phase, Detail: ev.Detail})
		case types.EventWarning:
			r.emit(WarningMsg{Op: OpIndex, Text: ev.Message, Path: ev.Path, Err: ev.Err})
		case types.EventError:
			if ev.Fatal {
				return FailedMsg{Op: OpIndex, Err: &BackendError{Op: OpIndex, Err: eventErr(ev)}}
			}
			r.log.Warn().Err(ev.Err).Str("path", ev.Path).Msg(ev.Message)
			r.emit(WarningMsg{Op: OpIndex, Text: ev.Message, Path: ev.Path, Err: ev.Err})
		case types.EventComplete:
			if ev.Summary != nil {
				summary = *ev.Summary
			}
		}
		if r.checkpoint(ctx) != nil {
			return CancelledMsg{Op: OpIndex}
		}
	}
	return IndexDoneMsg{Summary: summary}
}

func eventErr(ev types.IndexEvent) error {
	if ev.Err != nil {
		return ev.Err
	}
	if ev.Message != "" {
		return errors.New(ev.Message)
	}
	return errors.New("index build failed")
}

// checkpoint returns ErrCancelled once Cancel was called or the worker is
// shutting down.
func (r *Runner) checkpoint(ctx context.Context) error {
	if r.cancelled.Load() || ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

// emit delivers m unless the worker is shutting down.
func (r *Runner) emit(m Message) {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	select {
	case r.messages <- m:
	case <-ctx.Done():
	}
}

func outcome(m Message) string {
	switch m.(type) {
	case CancelledMsg:
		return "cancelled"
	case FailedMsg:
		return "failed"
	default:
		return "completed"
	}
}
