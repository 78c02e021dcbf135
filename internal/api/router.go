// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seek-irl/seekd/internal/config"
	"github.com/seek-irl/seekd/internal/logging"
	seekws "github.com/seek-irl/seekd/internal/websocket"
)

// NewRouter assembles the chi router: middleware stack, versioned API,
// websocket upgrade, health and metrics.
func NewRouter(h *Handler, hub *seekws.Hub, cfg config.SecurityConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(cfg))
	r.Use(rateLimiter(cfg))
	r.Use(metricsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(writeRateLimiter(cfg))
			r.Post("/checkins", h.handleCheckIn)
			r.Post("/declare-away", h.handleDeclareAway)
			r.Post("/chat/rooms/dm", h.handleOpenDM)
			r.Post("/chat/messages", h.handleSendMessage)
			r.Post("/chat/votes", h.handleVote)
		})

		r.Get("/venues", h.handleVenues)
		r.Get("/venues/nearest", h.handleVenueNearest)
		r.Get("/venues/suggest", h.handleVenueSuggest)
		r.Get("/presence", h.handlePresence)
		r.Get("/trending", h.handleTrending)
		r.Get("/session", h.handleSession)
		r.Get("/chat/rooms/dm", h.handleListDMs)
		r.Get("/chat/messages", h.handleMessages)
	})

	r.Get("/ws", wsHandler(hub, cfg))
	r.Get("/health", handleHealth)
	r.Get("/health/ready", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// wsHandler upgrades the connection and seeds subscriptions from query
// parameters (?venue=, ?city=, ?trending=, ?room=); further scope
// changes arrive as subscribe/unsubscribe frames.
func wsHandler(hub *seekws.Hub, cfg config.SecurityConfig) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(cfg.CORSOrigins) == 0 {
				return true
			}
			for _, allowed := range cfg.CORSOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		q := r.URL.Query()
		var scopes []string
		if v := q.Get("venue"); v != "" {
			scopes = append(scopes, seekws.ScopeVenue(v))
		}
		if c := q.Get("city"); c != "" {
			scopes = append(scopes, seekws.ScopeCity(c))
		}
		if c := q.Get("trending"); c != "" {
			scopes = append(scopes, seekws.ScopeTrending(c))
		}
		if room := q.Get("room"); room != "" {
			scopes = append(scopes, seekws.ScopeRoom(room))
		}

		client := seekws.NewClient(hub, conn, scopes...)
		client.Start()
	}
}
