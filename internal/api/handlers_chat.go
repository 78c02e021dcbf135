// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/seek-irl/seekd/internal/chat"
	"github.com/seek-irl/seekd/internal/metrics"
	"github.com/seek-irl/seekd/internal/models"
	"github.com/seek-irl/seekd/internal/store"
)

// roomParams reads a room address from query or body fields.
type roomParams struct {
	Kind     models.RoomKind `json:"kind" validate:"required,oneof=city venue dm"`
	City     string          `json:"city,omitempty"`
	VenueKey string          `json:"venue_key,omitempty"`
	SelfID   string          `json:"self_id,omitempty"`
	PeerID   string          `json:"peer_id,omitempty"`
}

func (p roomParams) address() (models.ChatRoomAddress, error) {
	return chat.ResolveAddress(p.Kind, p.City, models.NormalizeKey(p.VenueKey), p.SelfID, p.PeerID)
}

func respondAddressError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrNoCity):
		respondError(w, http.StatusBadRequest, codeNoCity, "select a city first", nil)
	case errors.Is(err, chat.ErrNoVenue):
		respondError(w, http.StatusBadRequest, codeNoVenue, "check in to a venue to use its room", nil)
	case errors.Is(err, chat.ErrNoPeer):
		respondError(w, http.StatusBadRequest, codeNoPeer, "dm requires two distinct identities", nil)
	default:
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid room address", err)
	}
}

// OpenDMRequest creates (or touches) the DM room between two identities.
type OpenDMRequest struct {
	SelfID   string `json:"self_id" validate:"required"`
	SelfName string `json:"self_name,omitempty" validate:"max=80"`
	PeerID   string `json:"peer_id" validate:"required"`
	PeerName string `json:"peer_name,omitempty" validate:"max=80"`
}

func (h *Handler) handleOpenDM(w http.ResponseWriter, r *http.Request) {
	var req OpenDMRequest
	if !decodeBody(w, r, &req) {
		return
	}
	room, err := h.chat.OpenDM(r.Context(), req.SelfID, req.SelfName, req.PeerID, req.PeerName)
	if err != nil {
		if errors.Is(err, chat.ErrNoPeer) {
			respondAddressError(w, err)
			return
		}
		respondError(w, http.StatusInternalServerError, codeInternal, "dm open failed", err)
		return
	}
	respondData(w, http.StatusOK, room)
}

func (h *Handler) handleListDMs(w http.ResponseWriter, r *http.Request) {
	identityKey := r.URL.Query().Get("identity_key")
	if identityKey == "" {
		respondError(w, http.StatusBadRequest, codeValidation, "identity_key parameter required", nil)
		return
	}
	rooms, err := h.chat.ListDMs(r.Context(), identityKey)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "dm list failed", err)
		return
	}
	respondData(w, http.StatusOK, rooms)
}

// SendMessageRequest posts one message to a room.
type SendMessageRequest struct {
	Room  roomParams `json:"room" validate:"required"`
	From  string     `json:"from" validate:"required"`
	Text  string     `json:"text,omitempty"`
	Emoji string     `json:"emoji,omitempty" validate:"max=16"`
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	addr, err := req.Room.address()
	if err != nil {
		respondAddressError(w, err)
		return
	}

	msg, err := h.chat.Send(r.Context(), addr, req.From, models.ChatMessage{
		Text:     req.Text,
		Emoji:    req.Emoji,
		VenueKey: models.NormalizeKey(req.Room.VenueKey),
	})
	switch {
	case errors.Is(err, chat.ErrRateLimited):
		metrics.ChatRateLimited.Inc()
		respondError(w, http.StatusTooManyRequests, codeRateLimited, "sending too fast", nil)
		return
	case errors.Is(err, chat.ErrMessageTooLong):
		respondError(w, http.StatusBadRequest, codeMessageTooLong, "message too long", nil)
		return
	case errors.Is(err, chat.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, codeEmptyMessage, "message is empty", nil)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, codeInternal, "send failed", err)
		return
	}

	metrics.ChatMessagesTotal.WithLabelValues(string(req.Room.Kind)).Inc()
	respondData(w, http.StatusCreated, msg)
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	params := roomParams{
		Kind:     models.RoomKind(r.URL.Query().Get("kind")),
		City:     r.URL.Query().Get("city"),
		VenueKey: r.URL.Query().Get("venue"),
		SelfID:   r.URL.Query().Get("self_id"),
		PeerID:   r.URL.Query().Get("peer_id"),
	}
	addr, err := params.address()
	if err != nil {
		respondAddressError(w, err)
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeBadRequest, "since must be RFC3339", nil)
			return
		}
	}
	limit := queryInt(r, "limit", 100)

	msgs, err := h.chat.History(r.Context(), addr, since, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "history failed", err)
		return
	}
	respondData(w, http.StatusOK, msgs)
}

// VoteRequest applies one identity's vote to a message.
type VoteRequest struct {
	MessageID   string `json:"message_id" validate:"required"`
	IdentityKey string `json:"identity_key" validate:"required"`
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	msg, applied, err := h.chat.Vote(r.Context(), req.MessageID, req.IdentityKey)
	if err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			respondError(w, http.StatusNotFound, codeMessageNotFound, "unknown message", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, codeInternal, "vote failed", err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"message": msg,
		"applied": applied,
	})
}
