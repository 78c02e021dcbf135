// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/adhocore/gronx"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/seek-irl/seekd/internal/logging"
	"github.com/seek-irl/seekd/internal/metrics"
	"github.com/seek-irl/seekd/internal/models"
)

// ErrNoSource indicates neither a CSV URL nor a CSV path is configured.
var ErrNoSource = errors.New("directory: no csv source configured")

// RefresherConfig configures the scheduled re-import.
type RefresherConfig struct {
	CSVURL       string
	CSVPath      string
	Cron         string
	FetchTimeout time.Duration
}

// Refresher re-imports the venue sheet on a cron schedule. Fetches are
// wrapped in a circuit breaker so a flapping sheet host backs off instead
// of hammering; a failed refresh keeps the previous catalog (staleness is
// acceptable).
//
// Refresher implements suture.Service via Serve.
type Refresher struct {
	dir     *Directory
	cfg     RefresherConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]models.Venue]
}

// NewRefresher validates the cron expression and builds the refresher.
func NewRefresher(dir *Directory, cfg RefresherConfig) (*Refresher, error) {
	if cfg.Cron == "" {
		cfg.Cron = "*/30 * * * *"
	}
	if !gronx.IsValid(cfg.Cron) {
		return nil, fmt.Errorf("directory: invalid refresh cron %q", cfg.Cron)
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[[]models.Venue](gobreaker.Settings{
		Name:        "directory-fetch",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Refresher{
		dir:     dir,
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		breaker: breaker,
	}, nil
}

// Load performs one import immediately. Used at startup before the
// schedule takes over.
func (r *Refresher) Load(ctx context.Context) error {
	venues, err := r.breaker.Execute(func() ([]models.Venue, error) {
		return r.fetch(ctx)
	})
	if err != nil {
		metrics.DirectoryRefreshes.WithLabelValues("error").Inc()
		return err
	}
	r.dir.Replace(venues)
	metrics.DirectoryRefreshes.WithLabelValues("ok").Inc()
	metrics.DirectoryVenues.Set(float64(len(venues)))
	logging.Info().Int("venues", len(venues)).Msg("venue directory loaded")
	return nil
}

// Serve runs the refresh schedule until the context is canceled.
func (r *Refresher) Serve(ctx context.Context) error {
	for {
		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(r.cfg.Cron, now, false)
		if err != nil {
			// Validated at construction; any failure here is transient.
			logging.Err(err).Str("cron", r.cfg.Cron).Msg("next tick computation failed")
			next = now.Add(30 * time.Minute)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(next)):
		}

		if err := r.Load(ctx); err != nil {
			// Keep serving with the stale catalog.
			logging.Warn().Err(err).Msg("venue directory refresh failed")
		}
	}
}

// String identifies the service in supervisor logs.
func (r *Refresher) String() string { return "directory-refresher" }

func (r *Refresher) fetch(ctx context.Context) ([]models.Venue, error) {
	switch {
	case r.cfg.CSVURL != "":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.CSVURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build directory request: %w", err)
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch venue sheet: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch venue sheet: status %d", resp.StatusCode)
		}
		return ParseCSV(resp.Body)

	case r.cfg.CSVPath != "":
		f, err := os.Open(r.cfg.CSVPath)
		if err != nil {
			return nil, fmt.Errorf("open venue sheet: %w", err)
		}
		defer func() { _ = f.Close() }()
		return ParseCSV(f)

	default:
		return nil, ErrNoSource
	}
}
