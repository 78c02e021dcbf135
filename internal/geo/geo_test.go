// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package geo

import (
	"math"
	"testing"
)

func TestDistanceKnownPairs(t *testing.T) {
	// Berkeley to San Francisco is roughly 16-17 km.
	d := Distance(37.8715, -122.2730, 37.7749, -122.4194)
	if d < 14 || d > 20 {
		t.Errorf("Berkeley-SF distance = %.2f km, expected ~16", d)
	}

	// Same point.
	if d := Distance(37.8715, -122.2730, 37.8715, -122.2730); d != 0 {
		t.Errorf("zero distance expected, got %f", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	ab := Distance(37.87, -122.27, 40.71, -74.00)
	ba := Distance(40.71, -74.00, 37.87, -122.27)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", ab, ba)
	}
}

func TestGridNearest(t *testing.T) {
	g := NewGrid(5)
	g.Insert("spats", 37.8690, -122.2680)
	g.Insert("kips", 37.8680, -122.2660)
	g.Insert("far-away", 40.7128, -74.0060)

	// Query near spats.
	p, dist, ok := g.Nearest(37.8691, -122.2681, 1.0)
	if !ok {
		t.Fatal("expected a nearest match")
	}
	if p.ID != "spats" {
		t.Errorf("nearest = %s, want spats", p.ID)
	}
	if dist > 0.1 {
		t.Errorf("distance = %f km, expected under 100m", dist)
	}
}

func TestGridNearestRadiusExceeded(t *testing.T) {
	g := NewGrid(5)
	g.Insert("spats", 37.8690, -122.2680)

	// Query from San Francisco with a 1km radius: no match.
	if _, _, ok := g.Nearest(37.7749, -122.4194, 1.0); ok {
		t.Error("match beyond radius should be rejected")
	}
}

func TestGridReplaceAndRemove(t *testing.T) {
	g := NewGrid(5)
	g.Insert("v", 37.0, -122.0)
	g.Insert("v", 38.0, -121.0) // replaces
	if g.Size() != 1 {
		t.Fatalf("size = %d after replace, want 1", g.Size())
	}
	if _, _, ok := g.Nearest(37.0, -122.0, 1.0); ok {
		t.Error("old location should be gone after replace")
	}
	if _, _, ok := g.Nearest(38.0, -121.0, 1.0); !ok {
		t.Error("new location missing after replace")
	}
	if !g.Remove("v") || g.Size() != 0 {
		t.Error("remove failed")
	}
	if g.Remove("v") {
		t.Error("second remove should report false")
	}
}
