// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package presence

import (
	"sync"
	"time"
)

// VenueWindow counts unique identities seen per venue within a sliding
// window. The trending view uses it as a cheap momentum signal alongside
// the full event-derived activity: Observe is O(1), Count is O(buckets).
//
// Time is divided into a circular buffer of bucket sets. An identity
// observed in several buckets counts once. The clock is injectable so
// tests can drive window expiry without sleeping.
type VenueWindow struct {
	mu         sync.Mutex
	venues     map[string]*venueBuckets
	bucketSize time.Duration
	numBuckets int
	now        func() time.Time
}

type venueBuckets struct {
	buckets    []map[string]struct{}
	current    int
	lastUpdate time.Time
}

// NewVenueWindow creates a window of the given total size split into
// numBuckets buckets. Degenerate arguments fall back to a 1-hour window
// with 12 buckets.
func NewVenueWindow(windowSize time.Duration, numBuckets int) *VenueWindow {
	if windowSize <= 0 {
		windowSize = time.Hour
	}
	if numBuckets <= 0 {
		numBuckets = 12
	}
	return &VenueWindow{
		venues:     make(map[string]*venueBuckets),
		bucketSize: windowSize / time.Duration(numBuckets),
		numBuckets: numBuckets,
		now:        time.Now,
	}
}

// Observe records that identityKey was seen at venueKey.
func (w *VenueWindow) Observe(venueKey, identityKey string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	vb, ok := w.venues[venueKey]
	if !ok {
		vb = &venueBuckets{
			buckets:    make([]map[string]struct{}, w.numBuckets),
			lastUpdate: w.now(),
		}
		for i := range vb.buckets {
			vb.buckets[i] = make(map[string]struct{})
		}
		w.venues[venueKey] = vb
	}
	w.advance(vb)
	vb.buckets[vb.current][identityKey] = struct{}{}
}

// Count returns how many distinct identities were seen at venueKey
// within the window.
func (w *VenueWindow) Count(venueKey string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	vb, ok := w.venues[venueKey]
	if !ok {
		return 0
	}
	w.advance(vb)

	merged := make(map[string]struct{})
	for _, bucket := range vb.buckets {
		for id := range bucket {
			merged[id] = struct{}{}
		}
	}
	return len(merged)
}

// Prune drops venues whose window has fully emptied. Returns the number
// of venues removed.
func (w *VenueWindow) Prune() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	for key, vb := range w.venues {
		w.advance(vb)
		empty := true
		for _, bucket := range vb.buckets {
			if len(bucket) > 0 {
				empty = false
				break
			}
		}
		if empty {
			delete(w.venues, key)
			removed++
		}
	}
	return removed
}

// advance rotates expired buckets out. Must be called with the lock held.
func (w *VenueWindow) advance(vb *venueBuckets) {
	now := w.now()
	elapsed := int(now.Sub(vb.lastUpdate) / w.bucketSize)
	if elapsed <= 0 {
		return
	}
	if elapsed >= w.numBuckets {
		for i := range vb.buckets {
			vb.buckets[i] = make(map[string]struct{})
		}
		vb.current = 0
	} else {
		for i := 0; i < elapsed; i++ {
			vb.current = (vb.current + 1) % w.numBuckets
			vb.buckets[vb.current] = make(map[string]struct{})
		}
	}
	vb.lastUpdate = now
}
