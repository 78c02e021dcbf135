// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package chat implements room addressing and the message pipeline:
// city rooms, venue rooms and two-party DM rooms, with profanity
// masking, per-sender pacing and idempotent votes.
package chat

import (
	"errors"
	"sync"

	"github.com/seek-irl/seekd/internal/models"
)

// Recoverable addressing errors. Callers surface these as user-facing
// prompts (pick a city, check in somewhere), not failures.
var (
	ErrNoCity  = errors.New("chat: no city selected")
	ErrNoVenue = errors.New("chat: no active venue")
	ErrNoPeer  = errors.New("chat: dm requires a peer")
)

// ResolveAddress validates and builds a room address for the given mode.
// Venue mode requires a real venue key: the "not at a venue" sentinel and
// an empty key both resolve to ErrNoVenue so the caller can fall back to
// the city room.
func ResolveAddress(kind models.RoomKind, city, venueKey, selfID, peerID string) (models.ChatRoomAddress, error) {
	switch kind {
	case models.RoomCity:
		if city == "" {
			return models.ChatRoomAddress{}, ErrNoCity
		}
		return models.ChatRoomAddress{Kind: models.RoomCity, City: city}, nil
	case models.RoomVenue:
		if venueKey == "" || venueKey == models.NotAtVenueKey {
			return models.ChatRoomAddress{}, ErrNoVenue
		}
		return models.ChatRoomAddress{Kind: models.RoomVenue, VenueKey: venueKey}, nil
	case models.RoomDM:
		if selfID == "" || peerID == "" || selfID == peerID {
			return models.ChatRoomAddress{}, ErrNoPeer
		}
		return models.ChatRoomAddress{Kind: models.RoomDM, PairKey: models.PairKey(selfID, peerID)}, nil
	default:
		return models.ChatRoomAddress{}, errors.New("chat: unknown room kind")
	}
}

// Selector tracks one client's current room. A selector opened directly
// into a DM (from a notification) is locked: mode switches are ignored
// until the client leaves the DM explicitly.
type Selector struct {
	mu      sync.Mutex
	current models.ChatRoomAddress
	locked  bool
}

// NewSelector starts at addr. lockDM pins a DM address against switches.
func NewSelector(addr models.ChatRoomAddress, lockDM bool) *Selector {
	return &Selector{current: addr, locked: lockDM && addr.Kind == models.RoomDM}
}

// Current returns the active address.
func (s *Selector) Current() models.ChatRoomAddress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Switch moves to addr and reports whether the switch took effect.
// Locked DM selectors ignore switches.
func (s *Selector) Switch(addr models.ChatRoomAddress) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return false
	}
	s.current = addr
	return true
}

// Unlock releases a DM lock; the next Switch takes effect.
func (s *Selector) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = false
}
