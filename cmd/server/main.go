// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package main is the entry point for the Seekd server.
//
// Seekd answers one question for a night-out city: who is where, right
// now. Anonymous check-ins flow through a Badger-backed event log into a
// windowed presence derivation, a trending board, and city/venue/DM chat
// rooms, all pushed live over websockets.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layered sources (defaults, YAML, SEEKD_* env)
//  2. Message bus: in-process gochannel, or NATS core when nats.enabled
//  3. Store: Badger event log, publishing each append onto the bus
//  4. Venue directory: CSV import plus cron refresh
//  5. Event processor: Watermill router deriving live views
//  6. Supervisor tree: storage / events / api layers under suture
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor context; the HTTP server
// drains in-flight requests before the store and bus close.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seek-irl/seekd/internal/api"
	"github.com/seek-irl/seekd/internal/chat"
	"github.com/seek-irl/seekd/internal/config"
	"github.com/seek-irl/seekd/internal/directory"
	"github.com/seek-irl/seekd/internal/eventprocessor"
	"github.com/seek-irl/seekd/internal/logging"
	"github.com/seek-irl/seekd/internal/presence"
	"github.com/seek-irl/seekd/internal/resolve"
	"github.com/seek-irl/seekd/internal/store"
	"github.com/seek-irl/seekd/internal/supervisor"
	seekws "github.com/seek-irl/seekd/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("store_path", cfg.Store.Path).
		Bool("nats", cfg.NATS.Enabled).
		Msg("configuration loaded")

	bus, err := store.NewBus(cfg.NATS)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize message bus")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing message bus")
		}
	}()

	st, err := store.Open(cfg.Store, bus.Publisher)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing store")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := directory.New(cfg.Directory.CellSizeKm)
	refresher, err := directory.NewRefresher(dir, directory.RefresherConfig{
		CSVURL:       cfg.Directory.CSVURL,
		CSVPath:      cfg.Directory.CSVPath,
		Cron:         cfg.Directory.RefreshCron,
		FetchTimeout: cfg.Directory.FetchTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build directory refresher")
	}
	if err := refresher.Load(ctx); err != nil {
		if errors.Is(err, directory.ErrNoSource) {
			logging.Warn().Msg("no venue sheet configured; directory starts empty")
		} else {
			// A stale or empty catalog is survivable; the cron retries.
			logging.Warn().Err(err).Msg("initial venue import failed")
		}
	}

	hub := seekws.NewHub()
	snapshot := eventprocessor.NewSnapshot(cfg.Presence.SnapshotRetention)
	processor, err := eventprocessor.New(cfg.Presence, bus, snapshot, hub)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build event processor")
	}
	if err := processor.Seed(ctx, st, dir.Cities()); err != nil {
		logging.Fatal().Err(err).Msg("failed to seed live snapshot")
	}

	handler := api.NewHandler(
		st,
		dir,
		resolve.New(dir, cfg.Directory.NearestRadiusKm, true),
		presence.NewSessions(st, st, cfg.Presence.SessionWindow),
		chat.NewService(st, cfg.Chat),
		snapshot,
		cfg.Presence,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, hub, cfg.Security),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	if !cfg.Store.InMemory {
		tree.AddStorage(supervisor.NewGCService(st, 10*time.Minute))
	}
	tree.AddStorage(supervisor.NewPruneService(processor, 5*time.Minute))
	tree.AddEvents(supervisor.NewRunService("websocket-hub", hub.Run))
	tree.AddEvents(supervisor.NewRunService("event-processor", processor.Run))
	tree.AddEvents(refresher)
	tree.AddAPI(supervisor.NewHTTPService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
	}

	logging.Info().Msg("stopped")
}
