// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package api

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/seek-irl/seekd/internal/chat"
	"github.com/seek-irl/seekd/internal/config"
	"github.com/seek-irl/seekd/internal/directory"
	"github.com/seek-irl/seekd/internal/eventprocessor"
	"github.com/seek-irl/seekd/internal/identity"
	"github.com/seek-irl/seekd/internal/metrics"
	"github.com/seek-irl/seekd/internal/models"
	"github.com/seek-irl/seekd/internal/presence"
	"github.com/seek-irl/seekd/internal/ranking"
	"github.com/seek-irl/seekd/internal/resolve"
	"github.com/seek-irl/seekd/internal/store"
)

// Handler bundles the services the HTTP surface fronts.
type Handler struct {
	store    *store.Store
	dir      *directory.Directory
	resolver *resolve.Resolver
	sessions *presence.Sessions
	chat     *chat.Service
	snapshot *eventprocessor.Snapshot
	presence config.PresenceConfig
	now      func() time.Time
}

// NewHandler wires the handler. snapshot may be nil; reads then fall
// back to scanning the store's log.
func NewHandler(
	st *store.Store,
	dir *directory.Directory,
	resolver *resolve.Resolver,
	sessions *presence.Sessions,
	chatSvc *chat.Service,
	snapshot *eventprocessor.Snapshot,
	presenceCfg config.PresenceConfig,
) *Handler {
	return &Handler{
		store:    st,
		dir:      dir,
		resolver: resolver,
		sessions: sessions,
		chat:     chatSvc,
		snapshot: snapshot,
		presence: presenceCfg,
		now:      time.Now,
	}
}

// CheckInRequest is the submission payload. AuthID is optional: absent,
// the identity is fingerprinted from the attributes.
type CheckInRequest struct {
	AuthID     string            `json:"auth_id,omitempty"`
	City       string            `json:"city" validate:"required,max=80"`
	VenueText  string            `json:"venue_text,omitempty" validate:"max=120"`
	Lat        *float64          `json:"lat,omitempty"`
	Lng        *float64          `json:"lng,omitempty"`
	NotListed  bool              `json:"not_listed,omitempty"`
	NotAtVenue bool              `json:"not_at_venue,omitempty"`
	Attributes models.Attributes `json:"attributes"`
}

// CheckInResponse returns the persisted event plus the resolved identity
// key the client stores for follow-up calls.
type CheckInResponse struct {
	Event       models.CheckInEvent `json:"event"`
	IdentityKey string              `json:"identity_key"`
	VenueNew    bool                `json:"venue_new,omitempty"`
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg, ok := validAttributes(req.Attributes); !ok {
		respondError(w, http.StatusBadRequest, codeValidation, msg, nil)
		return
	}

	in := resolve.Input{
		RawText:    req.VenueText,
		NotListed:  req.NotListed,
		NotAtVenue: req.NotAtVenue,
	}
	if req.Lat != nil && req.Lng != nil {
		in.HasCoords = true
		in.Lat, in.Lng = *req.Lat, *req.Lng
	}

	res, err := h.resolver.Resolve(in, req.City)
	switch {
	case errors.Is(err, resolve.ErrNoCity):
		respondError(w, http.StatusBadRequest, codeNoCity, "select a city first", nil)
		return
	case errors.Is(err, resolve.ErrNoInput):
		respondError(w, http.StatusBadRequest, codeNoVenue, "no venue matched; enter one by name", nil)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, codeInternal, "venue resolution failed", err)
		return
	}

	identityKey := identity.Resolve(req.AuthID, req.Attributes)
	ev := models.CheckInEvent{
		IdentityKey: identityKey,
		VenueKey:    res.VenueKey,
		VenueRaw:    res.VenueRaw,
		City:        req.City,
		Attributes:  req.Attributes,
	}
	if in.HasCoords {
		ev.Lat, ev.Lng = in.Lat, in.Lng
	}

	ev, err = h.store.AppendCheckIn(r.Context(), ev)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "check-in failed", err)
		return
	}
	if err := h.sessions.RecordCheckIn(r.Context(), ev); err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "session update failed", err)
		return
	}

	metrics.CheckInsTotal.WithLabelValues(ev.City).Inc()
	respondData(w, http.StatusCreated, CheckInResponse{
		Event:       ev,
		IdentityKey: identityKey,
		VenueNew:    res.Registered,
	})
}

// DeclareAwayRequest marks an identity as not at any venue. The client
// sends the identity key it got from check-in, or the auth/attribute
// pair to re-derive it.
type DeclareAwayRequest struct {
	IdentityKey string            `json:"identity_key,omitempty"`
	AuthID      string            `json:"auth_id,omitempty"`
	City        string            `json:"city" validate:"required,max=80"`
	Attributes  models.Attributes `json:"attributes,omitempty" validate:"structonly"`
}

func (h *Handler) handleDeclareAway(w http.ResponseWriter, r *http.Request) {
	var req DeclareAwayRequest
	if !decodeBody(w, r, &req) {
		return
	}
	identityKey := req.IdentityKey
	if identityKey == "" {
		if req.AuthID == "" && req.Attributes.Name == "" {
			respondError(w, http.StatusBadRequest, codeValidation, "identity_key or auth_id/attributes required", nil)
			return
		}
		identityKey = identity.Resolve(req.AuthID, req.Attributes)
	}

	if _, err := h.store.AppendCheckIn(r.Context(), models.CheckInEvent{
		IdentityKey: identityKey,
		VenueKey:    models.NotAtVenueKey,
		City:        req.City,
		Attributes:  req.Attributes,
	}); err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "declare failed", err)
		return
	}
	if err := h.sessions.DeclareAway(r.Context(), identityKey, req.City); err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "session update failed", err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"identity_key": identityKey,
		"state":        models.SessionDeclared,
	})
}

func (h *Handler) handleVenues(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		respondError(w, http.StatusBadRequest, codeNoCity, "city parameter required", nil)
		return
	}
	respondData(w, http.StatusOK, h.dir.VenuesForCity(city))
}

func (h *Handler) handleVenueSuggest(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		respondError(w, http.StatusBadRequest, codeNoCity, "city parameter required", nil)
		return
	}
	q := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", 10)
	respondData(w, http.StatusOK, h.dir.Suggest(city, q, limit))
}

func (h *Handler) handleVenueNearest(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		respondError(w, http.StatusBadRequest, codeNoCity, "city parameter required", nil)
		return
	}
	lat, okLat := queryFloat(r, "lat")
	lng, okLng := queryFloat(r, "lng")
	if !okLat || !okLng {
		respondError(w, http.StatusBadRequest, codeBadRequest, "lat and lng parameters required", nil)
		return
	}
	radius, _ := queryFloat(r, "radius_km")
	if radius <= 0 {
		radius = 0.5
	}
	venue, dist, ok := h.dir.Nearest(city, lat, lng, radius)
	if !ok {
		respondError(w, http.StatusNotFound, codeNoVenue, "no venue within radius", nil)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"venue":       venue,
		"distance_km": dist,
	})
}

// handlePresence serves the deduplicated presence view, optionally
// filtered. Filter fields arrive as filter.<field>=value query params,
// priority as a comma list; hard=true switches soft ranking to
// exclusion.
func (h *Handler) handlePresence(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		respondError(w, http.StatusBadRequest, codeNoCity, "city parameter required", nil)
		return
	}
	venueKey := models.NormalizeKey(r.URL.Query().Get("venue"))

	events, err := h.cityEvents(r, city)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "presence derivation failed", err)
		return
	}
	entries := presence.ActivePresence(events, venueKey, h.presence.VenueWindow, h.now())

	filters := filtersFromQuery(r)
	if filters.Active() {
		if r.URL.Query().Get("hard") == "true" {
			entries = ranking.HardFilter(entries, filters)
		} else {
			entries = ranking.RankByFilters(entries, filters)
		}
	}
	respondData(w, http.StatusOK, entries)
}

func (h *Handler) handleTrending(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		respondError(w, http.StatusBadRequest, codeNoCity, "city parameter required", nil)
		return
	}
	limit := queryInt(r, "limit", 0)

	events, err := h.cityEvents(r, city)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "trending derivation failed", err)
		return
	}
	activity := presence.ActivityByVenue(events, h.presence.TrendingWindow, h.now())
	board := ranking.RankTrending(activity, limit)

	// Attach directory details where the venue is known.
	type trendingVenue struct {
		models.VenueActivity
		Venue *models.Venue `json:"venue,omitempty"`
	}
	out := make([]trendingVenue, 0, len(board))
	for _, act := range board {
		tv := trendingVenue{VenueActivity: act}
		if v, ok := h.dir.Lookup(city, act.VenueKey); ok {
			venue := v
			tv.Venue = &venue
		}
		out = append(out, tv)
	}
	respondData(w, http.StatusOK, out)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	identityKey := r.URL.Query().Get("identity_key")
	if identityKey == "" {
		respondError(w, http.StatusBadRequest, codeValidation, "identity_key parameter required", nil)
		return
	}
	gate, state, err := h.sessions.State(r.Context(), identityKey, h.now())
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "session lookup failed", err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"state": state,
		"gate":  gate,
	})
}

// cityEvents prefers the live snapshot and falls back to the log.
func (h *Handler) cityEvents(r *http.Request, city string) ([]models.CheckInEvent, error) {
	if h.snapshot != nil {
		return h.snapshot.Events(city), nil
	}
	since := h.now().Add(-h.presence.SnapshotRetention)
	return h.store.EventsSince(r.Context(), city, since)
}

func validAttributes(attrs models.Attributes) (string, bool) {
	switch {
	case !models.ValidGender(attrs.Gender):
		return "unknown gender option", false
	case !models.ValidSexuality(attrs.Sexuality):
		return "unknown sexuality option", false
	case !models.ValidHomeState(attrs.HomeState):
		return "unknown home state option", false
	}
	return "", true
}

func filtersFromQuery(r *http.Request) ranking.Filters {
	values := make(map[string]string)
	for key, vals := range r.URL.Query() {
		if strings.HasPrefix(key, "filter.") && len(vals) > 0 && vals[0] != "" {
			values[strings.TrimPrefix(key, "filter.")] = vals[0]
		}
	}
	var priority []string
	if raw := r.URL.Query().Get("priority"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				priority = append(priority, f)
			}
		}
	}
	if len(priority) == 0 {
		// Without an explicit order, active fields rank alphabetically
		// so scoring stays deterministic.
		for f := range values {
			priority = append(priority, f)
		}
		sort.Strings(priority)
	}
	return ranking.Filters{Values: values, Priority: priority}
}
