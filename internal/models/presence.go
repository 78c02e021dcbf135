// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package models

import "time"

// PresenceEntry is the derived "who is here now" record: the most recent
// CheckInEvent for a (venueKey, identityKey) pair inside the active window.
type PresenceEntry struct {
	IdentityKey string     `json:"identity_key"`
	VenueKey    string     `json:"venue_key"`
	VenueRaw    string     `json:"venue_raw"`
	City        string     `json:"city"`
	Attributes  Attributes `json:"attributes"`
	CreatedAt   time.Time  `json:"created_at"`
}

// GenderCounts aggregates presence entries by coarse gender buckets,
// mirroring the venue summary cards of the original product.
type GenderCounts struct {
	Men   int `json:"men"`
	Women int `json:"women"`
	Other int `json:"other"`
}

// VenueActivity is the derived per-venue aggregate used for trending.
// Recomputed on every underlying snapshot change; never stored.
type VenueActivity struct {
	VenueKey string          `json:"venue_key"`
	VenueRaw string          `json:"venue_raw"`
	City     string          `json:"city"`
	Count    int             `json:"count"`
	AvgAge   float64         `json:"avg_age,omitempty"`
	Genders  GenderCounts    `json:"genders"`
	Entries  []PresenceEntry `json:"entries,omitempty"`
}

// SessionState describes where a user's own check-in session stands.
type SessionState string

const (
	// SessionNone means no check-in has been observed for this identity.
	SessionNone SessionState = "none"

	// SessionActive means the last check-in is within the session window.
	SessionActive SessionState = "active"

	// SessionExpired means the session window elapsed without a new check-in.
	SessionExpired SessionState = "expired"

	// SessionDeclared means the user explicitly declared "not at a venue".
	// Declared persists until the next check-in; background expiry must not
	// overwrite it.
	SessionDeclared SessionState = "declared"
)

// SessionGate is the client-local session record. It is cached in the
// session store, recreated from the latest CheckInEvent on reconnect,
// and gates whether the UI re-prompts for check-in.
type SessionGate struct {
	IdentityKey   string    `json:"identity_key"`
	LastCheckInAt time.Time `json:"last_check_in_at"`
	VenueKey      string    `json:"venue_key"`
	City          string    `json:"city"`
	Declared      bool      `json:"declared"`
}

// StateAt evaluates the gate against the session TTL.
// Declared wins over expiry: the two are distinct terminal states and only
// a new check-in leaves either of them.
func (g SessionGate) StateAt(now time.Time, sessionTTL time.Duration) SessionState {
	if g.Declared {
		return SessionDeclared
	}
	if g.LastCheckInAt.IsZero() {
		return SessionNone
	}
	if now.Sub(g.LastCheckInAt) < sessionTTL {
		return SessionActive
	}
	return SessionExpired
}
