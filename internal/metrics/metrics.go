// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package metrics defines the Prometheus instrumentation surface:
// check-in throughput, derivation latency, websocket fan-out, chat
// volume and directory refresh health.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seekd_checkins_total",
			Help: "Total check-in events appended, by city",
		},
		[]string{"city"},
	)

	DeclaredAwayTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seekd_declared_away_total",
			Help: "Total explicit not-at-a-venue declarations",
		},
	)

	DerivationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seekd_presence_derivation_seconds",
			Help:    "Time to derive a presence snapshot from the event log",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotEvents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seekd_snapshot_events",
			Help: "Events held in the live snapshot, by city",
		},
		[]string{"city"},
	)

	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seekd_websocket_clients",
			Help: "Currently connected websocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seekd_websocket_messages_sent_total",
			Help: "Messages fanned out to websocket clients",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seekd_websocket_messages_dropped_total",
			Help: "Messages dropped because a client's send buffer was full",
		},
	)

	ChatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seekd_chat_messages_total",
			Help: "Chat messages appended, by room kind",
		},
		[]string{"kind"},
	)

	ChatRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seekd_chat_rate_limited_total",
			Help: "Chat sends rejected by the per-sender limiter",
		},
	)

	DirectoryRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seekd_directory_refreshes_total",
			Help: "Venue directory refresh attempts, by outcome",
		},
		[]string{"outcome"}, // "ok", "error"
	)

	DirectoryVenues = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seekd_directory_venues",
			Help: "Venues currently loaded in the directory",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seekd_http_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	BusPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seekd_bus_publish_errors_total",
			Help: "Failed bus publishes, by topic prefix",
		},
		[]string{"topic"},
	)
)

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ObserveDerivation records one snapshot derivation pass.
func ObserveDerivation(elapsed time.Duration) {
	DerivationDuration.Observe(elapsed.Seconds())
}
