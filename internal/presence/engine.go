// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package presence derives "who is here now" and per-venue activity from
// the raw check-in event stream.
//
// The derivation functions are pure and re-entrant: they run on every
// snapshot push, so they must be cheap (O(events)) and side-effect free.
// Two clients may observe the same change set in different delivery order,
// so the dedup step is order-insensitive except for the documented
// same-timestamp tie-break.
package presence

import (
	"sort"
	"time"

	"github.com/seek-irl/seekd/internal/models"
)

// ActivePresence derives the deduplicated presence view from events.
//
// venueKey filters to a single venue; empty venueKey yields the city-wide
// aggregate view. window bounds relevance: events older than window at
// `now` drop out of the view (storage is untouched).
//
// Dedup is last-write-wins per identity. An identity's most recent event
// decides where they are, including the "not at a venue" sentinel, which
// removes them from every venue until their next check-in. Events with
// identical timestamps tie-break to the later arrival in input order;
// callers must not rely on that outcome.
//
// The result is ordered by CreatedAt descending (most recent first).
func ActivePresence(events []models.CheckInEvent, venueKey string, window time.Duration, now time.Time) []models.PresenceEntry {
	latest := make(map[string]models.CheckInEvent)
	for _, e := range events {
		age := now.Sub(e.CreatedAt)
		if age < 0 || age > window {
			continue
		}
		cur, seen := latest[e.IdentityKey]
		// Equal timestamps fall through to the newer arrival.
		if seen && cur.CreatedAt.After(e.CreatedAt) {
			continue
		}
		latest[e.IdentityKey] = e
	}

	entries := make([]models.PresenceEntry, 0, len(latest))
	for _, e := range latest {
		if !e.AtVenue() {
			continue
		}
		if venueKey != "" && e.VenueKey != venueKey {
			continue
		}
		entries = append(entries, models.PresenceEntry{
			IdentityKey: e.IdentityKey,
			VenueKey:    e.VenueKey,
			VenueRaw:    e.VenueRaw,
			City:        e.City,
			Attributes:  e.Attributes,
			CreatedAt:   e.CreatedAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		// Deterministic output for equal timestamps.
		return entries[i].IdentityKey < entries[j].IdentityKey
	})
	return entries
}

// ActivityByVenue aggregates the city-wide presence view into per-venue
// activity records, including the summary-card aggregates (average age,
// gender counts). Order is unspecified here; ranking sorts.
func ActivityByVenue(events []models.CheckInEvent, window time.Duration, now time.Time) []models.VenueActivity {
	entries := ActivePresence(events, "", window, now)

	byVenue := make(map[string]*models.VenueActivity)
	var order []string
	for _, entry := range entries {
		act, ok := byVenue[entry.VenueKey]
		if !ok {
			act = &models.VenueActivity{
				VenueKey: entry.VenueKey,
				VenueRaw: entry.VenueRaw,
				City:     entry.City,
			}
			byVenue[entry.VenueKey] = act
			order = append(order, entry.VenueKey)
		}
		act.Count++
		act.Entries = append(act.Entries, entry)
		switch entry.Attributes.Gender {
		case "Man":
			act.Genders.Men++
		case "Woman":
			act.Genders.Women++
		default:
			act.Genders.Other++
		}
	}

	out := make([]models.VenueActivity, 0, len(order))
	for _, key := range order {
		act := byVenue[key]
		act.AvgAge = averageAge(act.Entries)
		out = append(out, *act)
	}
	return out
}

func averageAge(entries []models.PresenceEntry) float64 {
	sum, n := 0, 0
	for _, e := range entries {
		if e.Attributes.Age > 0 {
			sum += e.Attributes.Age
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
