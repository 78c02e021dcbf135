// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package eventprocessor consumes the bus and keeps the live in-memory
// snapshot from which presence and trending views derive. Storage is the
// source of truth; the snapshot only exists so every check-in does not
// trigger a full log scan.
package eventprocessor

import (
	"sort"
	"sync"
	"time"

	"github.com/seek-irl/seekd/internal/metrics"
	"github.com/seek-irl/seekd/internal/models"
)

// Snapshot holds recent check-in events per city, pruned to a retention
// window. Retention must cover the longest derivation window (the
// session window), otherwise derived views would silently truncate.
type Snapshot struct {
	mu        sync.RWMutex
	byCity    map[string][]models.CheckInEvent
	retention time.Duration
	now       func() time.Time
}

// NewSnapshot creates an empty snapshot with the given retention.
func NewSnapshot(retention time.Duration) *Snapshot {
	return &Snapshot{
		byCity:    make(map[string][]models.CheckInEvent),
		retention: retention,
		now:       time.Now,
	}
}

// Add appends one event to its city's slice. Events arrive in store
// order from a single router handler, so append keeps CreatedAt order.
func (s *Snapshot) Add(ev models.CheckInEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	city := models.NormalizeKey(ev.City)
	s.byCity[city] = append(s.byCity[city], ev)
	metrics.SnapshotEvents.WithLabelValues(city).Set(float64(len(s.byCity[city])))
}

// Seed bulk-loads events (from the store's log on startup). Events are
// sorted per city afterwards so Seed order does not matter.
func (s *Snapshot) Seed(events []models.CheckInEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		city := models.NormalizeKey(ev.City)
		s.byCity[city] = append(s.byCity[city], ev)
	}
	for city, evs := range s.byCity {
		sort.SliceStable(evs, func(i, j int) bool { return evs[i].CreatedAt.Before(evs[j].CreatedAt) })
		metrics.SnapshotEvents.WithLabelValues(city).Set(float64(len(evs)))
	}
}

// Events returns a copy of the city's events.
func (s *Snapshot) Events(city string) []models.CheckInEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := s.byCity[models.NormalizeKey(city)]
	out := make([]models.CheckInEvent, len(evs))
	copy(out, evs)
	return out
}

// Cities lists cities currently holding events.
func (s *Snapshot) Cities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cities := make([]string, 0, len(s.byCity))
	for c := range s.byCity {
		cities = append(cities, c)
	}
	sort.Strings(cities)
	return cities
}

// Prune drops events older than the retention window. Returns how many
// events were removed.
func (s *Snapshot) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.retention)
	removed := 0
	for city, evs := range s.byCity {
		// Events are CreatedAt-ordered; find the first survivor.
		i := sort.Search(len(evs), func(i int) bool {
			return !evs[i].CreatedAt.Before(cutoff)
		})
		if i == 0 {
			continue
		}
		removed += i
		if i == len(evs) {
			delete(s.byCity, city)
			metrics.SnapshotEvents.WithLabelValues(city).Set(0)
			continue
		}
		kept := make([]models.CheckInEvent, len(evs)-i)
		copy(kept, evs[i:])
		s.byCity[city] = kept
		metrics.SnapshotEvents.WithLabelValues(city).Set(float64(len(kept)))
	}
	return removed
}
