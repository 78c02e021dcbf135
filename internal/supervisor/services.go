// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/seek-irl/seekd/internal/store"
)

// HTTPServer matches *http.Server's lifecycle surface.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService adapts a blocking ListenAndServe loop to suture's
// context-driven Serve. On cancellation it drains connections with a
// fresh timeout context, since the original one is already dead.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *HTTPService) String() string { return "http-server" }

// RunService wraps anything with a context-blocking Run method, which
// covers the websocket hub and the event processor.
type RunService struct {
	name string
	run  func(ctx context.Context) error
}

func NewRunService(name string, run func(ctx context.Context) error) *RunService {
	return &RunService{name: name, run: run}
}

// Serve implements suture.Service.
func (s *RunService) Serve(ctx context.Context) error {
	return s.run(ctx)
}

func (s *RunService) String() string { return s.name }

// GCService runs badger's value-log garbage collection on an interval.
type GCService struct {
	store    *store.Store
	interval time.Duration
}

func NewGCService(st *store.Store, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{store: st, interval: interval}
}

// Serve implements suture.Service.
func (s *GCService) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()
	s.store.RunGC(s.interval, stop)
	return ctx.Err()
}

func (s *GCService) String() string { return "badger-gc" }

// Pruner evicts expired state and reports how much was removed.
// Implemented by the event processor (snapshot plus trending window).
type Pruner interface {
	Prune() int
}

// PruneService drives a Pruner on an interval so in-memory derivation
// state tracks the retention horizon instead of growing forever.
type PruneService struct {
	pruner   Pruner
	interval time.Duration
}

func NewPruneService(pruner Pruner, interval time.Duration) *PruneService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &PruneService{pruner: pruner, interval: interval}
}

// Serve implements suture.Service.
func (s *PruneService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.pruner.Prune()
		}
	}
}

func (s *PruneService) String() string { return "snapshot-prune" }
