// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pdiddy/docfinder/internal/index"
	"github.com/pdiddy/docfinder/internal/pathnorm"
	"github.com/pdiddy/docfinder/internal/session"
	"github.com/pdiddy/docfinder/internal/worker"
	"github.com/pdiddy/docfinder/pkg/types"
)

// app wires the index backend, the background runner and a session for
// one command invocation.
type app struct {
	cfg     types.Config
	log     *zerolog.Logger
	backend *index.Backend
	runner  *worker.Runner
	session *session.Session
	cancel  context.CancelFunc
}

func newApp(ctx context.Context, cfg types.Config, listener session.Listener) (*app, error) {
	log, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	norm := pathnorm.Default()

	backend := index.NewBackend(index.Config{
		MaxResults: cfg.Search.MaxResults,
		Normalizer: norm,
		Logger:     log,
	})
	runner, err := worker.New(backend, worker.Config{
		CacheCapacity: cfg.Cache.Capacity,
		Logger:        log,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	runner.Start(ctx)

	return &app{
		cfg:     cfg,
		log:     log,
		backend: backend,
		runner:  runner,
		session: session.New(runner, listener, session.Config{
			Normalizer: norm,
			Sort:       cfg.View.SortSpec(),
			Types:      cfg.View.Types,
			Logger:     log,
		}),
		cancel: cancel,
	}, nil
}

// wait pumps messages until the running operation ends. Interrupting ctx
// cancels the operation and still waits for its terminal message.
func (a *app) wait(ctx context.Context) (worker.Message, error) {
	msg, err := a.session.Wait(ctx)
	if err == nil {
		return msg, nil
	}
	a.session.Cancel()
	return a.session.Wait(context.Background())
}

// Close stops the runner, waits for its loop to exit and closes the index.
func (a *app) Close() error {
	a.cancel()
	for range a.runner.Messages() {
	}
	return a.backend.Close()
}
