// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package ranking

import (
	"testing"
	"time"

	"github.com/seek-irl/seekd/internal/models"
)

func entry(id string, attrs models.Attributes, at time.Time) models.PresenceEntry {
	return models.PresenceEntry{
		IdentityKey: id,
		VenueKey:    "spats",
		City:        "austin",
		Attributes:  attrs,
		CreatedAt:   at,
	}
}

func TestRankTrending(t *testing.T) {
	acts := []models.VenueActivity{
		{VenueKey: "harrys", Count: 3},
		{VenueKey: "spats", Count: 7},
		{VenueKey: "clyde", Count: 3},
		{VenueKey: "juniper", Count: 1},
	}

	got := RankTrending(acts, 0)
	wantOrder := []string{"spats", "clyde", "harrys", "juniper"}
	for i, key := range wantOrder {
		if got[i].VenueKey != key {
			t.Fatalf("position %d = %s, want %s", i, got[i].VenueKey, key)
		}
	}

	// Input must not be mutated.
	if acts[0].VenueKey != "harrys" {
		t.Error("RankTrending mutated its input")
	}

	top2 := RankTrending(acts, 2)
	if len(top2) != 2 || top2[0].VenueKey != "spats" || top2[1].VenueKey != "clyde" {
		t.Errorf("topN truncation wrong: %+v", top2)
	}
}

func TestFilterScorePriorityWeights(t *testing.T) {
	f := Filters{
		Values: map[string]string{
			"college":    "UT Austin",
			"home_state": "Texas",
			"gender":     "Woman",
		},
		Priority: []string{"college", "home_state", "gender"},
	}

	tests := []struct {
		name  string
		attrs models.Attributes
		want  int
	}{
		{"all match", models.Attributes{College: "UT Austin", HomeState: "Texas", Gender: "Woman"}, 6},
		{"top priority only", models.Attributes{College: "UT Austin"}, 3},
		{"lowest priority only", models.Attributes{Gender: "Woman"}, 1},
		{"two lower beat one higher is false", models.Attributes{HomeState: "Texas", Gender: "Woman"}, 3},
		{"case-insensitive", models.Attributes{College: "ut austin"}, 3},
		{"no match", models.Attributes{College: "A&M"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Score(tt.attrs); got != tt.want {
				t.Errorf("Score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRankByFiltersKeepsZeroScoreEntries(t *testing.T) {
	now := time.Now()
	f := Filters{
		Values:   map[string]string{"college": "UT Austin"},
		Priority: []string{"college"},
	}
	entries := []models.PresenceEntry{
		entry("u1", models.Attributes{College: "A&M"}, now),
		entry("u2", models.Attributes{College: "UT Austin"}, now.Add(-time.Minute)),
		entry("u3", models.Attributes{}, now.Add(-2*time.Minute)),
	}

	got := RankByFilters(entries, f)
	if len(got) != 3 {
		t.Fatalf("soft ranking dropped entries: %d", len(got))
	}
	if got[0].IdentityKey != "u2" {
		t.Errorf("best match should lead: %s", got[0].IdentityKey)
	}
	// Zero-score entries keep their relative (recency) order.
	if got[1].IdentityKey != "u1" || got[2].IdentityKey != "u3" {
		t.Errorf("tie order not stable: %s, %s", got[1].IdentityKey, got[2].IdentityKey)
	}
}

func TestRankByFiltersInactivePassthrough(t *testing.T) {
	now := time.Now()
	entries := []models.PresenceEntry{
		entry("u1", models.Attributes{}, now),
		entry("u2", models.Attributes{}, now),
	}
	got := RankByFilters(entries, Filters{Values: map[string]string{"college": ""}})
	if len(got) != 2 || got[0].IdentityKey != "u1" {
		t.Errorf("inactive filters should pass through unchanged: %+v", got)
	}
}

func TestHardFilterExcludesNonMatches(t *testing.T) {
	now := time.Now()
	f := Filters{
		Values:   map[string]string{"college": "UT Austin", "gender": "Woman"},
		Priority: []string{"college", "gender"},
	}
	entries := []models.PresenceEntry{
		entry("u1", models.Attributes{College: "UT Austin", Gender: "Woman"}, now),
		entry("u2", models.Attributes{College: "UT Austin", Gender: "Man"}, now),
		entry("u3", models.Attributes{College: "A&M", Gender: "Woman"}, now),
	}

	got := HardFilter(entries, f)
	if len(got) != 1 || got[0].IdentityKey != "u1" {
		t.Errorf("hard filter result: %+v", got)
	}

	// Empty-valued fields do not exclude.
	loose := Filters{Values: map[string]string{"college": "", "gender": "Woman"}}
	got = HardFilter(entries, loose)
	if len(got) != 2 {
		t.Errorf("empty filter field excluded entries: %+v", got)
	}
}
