// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/seek-irl/seekd/internal/models"
)

// GateStore persists session gates. Implemented by the badger store.
type GateStore interface {
	ReadGate(ctx context.Context, identityKey string) (models.SessionGate, bool, error)
	WriteGate(ctx context.Context, gate models.SessionGate) error
}

// EventSource yields an identity's most recent check-in event, used to
// rebuild a gate that was lost locally (fresh process, evicted cache).
type EventSource interface {
	LatestCheckIn(ctx context.Context, identityKey string) (models.CheckInEvent, bool, error)
}

// Sessions is the gate service: it decides whether an identity is inside
// an active session window, and records the transitions that move the
// gate between states.
type Sessions struct {
	gates  GateStore
	events EventSource
	ttl    time.Duration
}

// NewSessions builds a gate service with the given session window.
func NewSessions(gates GateStore, events EventSource, ttl time.Duration) *Sessions {
	return &Sessions{gates: gates, events: events, ttl: ttl}
}

// RecordCheckIn refreshes the gate from a new check-in. Any prior
// Declared flag is cleared: checking in always re-opens the session.
func (s *Sessions) RecordCheckIn(ctx context.Context, ev models.CheckInEvent) error {
	gate := models.SessionGate{
		IdentityKey:   ev.IdentityKey,
		LastCheckInAt: ev.CreatedAt,
		VenueKey:      ev.VenueKey,
		City:          ev.City,
		Declared:      !ev.AtVenue(),
	}
	if err := s.gates.WriteGate(ctx, gate); err != nil {
		return fmt.Errorf("write gate for %s: %w", ev.IdentityKey, err)
	}
	return nil
}

// DeclareAway marks the identity as explicitly not at a venue. The gate
// keeps its timestamp, and the declared state holds until the next
// check-in; window expiry never overwrites it.
func (s *Sessions) DeclareAway(ctx context.Context, identityKey, city string) error {
	gate, ok, err := s.gates.ReadGate(ctx, identityKey)
	if err != nil {
		return fmt.Errorf("read gate for %s: %w", identityKey, err)
	}
	if !ok {
		gate = models.SessionGate{IdentityKey: identityKey, City: city}
	}
	gate.Declared = true
	gate.VenueKey = models.NotAtVenueKey
	if city != "" {
		gate.City = city
	}
	if err := s.gates.WriteGate(ctx, gate); err != nil {
		return fmt.Errorf("write gate for %s: %w", identityKey, err)
	}
	return nil
}

// State reports the identity's current session state. A gate missing from
// the local store is rebuilt from the identity's latest persisted event,
// so a process restart does not silently reset every returning user to
// NoSession.
func (s *Sessions) State(ctx context.Context, identityKey string, now time.Time) (models.SessionGate, models.SessionState, error) {
	gate, ok, err := s.gates.ReadGate(ctx, identityKey)
	if err != nil {
		return models.SessionGate{}, models.SessionNone, fmt.Errorf("read gate for %s: %w", identityKey, err)
	}
	if !ok && s.events != nil {
		ev, found, err := s.events.LatestCheckIn(ctx, identityKey)
		if err != nil {
			return models.SessionGate{}, models.SessionNone, fmt.Errorf("rebuild gate for %s: %w", identityKey, err)
		}
		if found {
			gate = models.SessionGate{
				IdentityKey:   ev.IdentityKey,
				LastCheckInAt: ev.CreatedAt,
				VenueKey:      ev.VenueKey,
				City:          ev.City,
				Declared:      !ev.AtVenue(),
			}
			ok = true
			if werr := s.gates.WriteGate(ctx, gate); werr != nil {
				return models.SessionGate{}, models.SessionNone, fmt.Errorf("cache rebuilt gate for %s: %w", identityKey, werr)
			}
		}
	}
	if !ok {
		return models.SessionGate{IdentityKey: identityKey}, models.SessionNone, nil
	}
	return gate, gate.StateAt(now, s.ttl), nil
}
