// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package ranking orders derived views for display: trending venues by
// activity, and presence entries by how well they match a viewer's
// attribute filters. All functions are pure and copy their inputs.
package ranking

import (
	"sort"
	"strings"

	"github.com/seek-irl/seekd/internal/models"
)

// Filters is a viewer's attribute filter set. Values maps attribute
// field names (gender, sexuality, college, home_state, home_country) to
// the wanted value; empty values are inactive. Priority lists the active
// fields in the viewer's chosen order, most important first.
type Filters struct {
	Values   map[string]string `json:"values"`
	Priority []string          `json:"priority"`
}

// Active reports whether any filter field carries a value.
func (f Filters) Active() bool {
	for _, v := range f.Values {
		if v != "" {
			return true
		}
	}
	return false
}

// Score computes the soft-match score of attrs against the filters.
// Each matching field contributes its priority weight: the first field
// in Priority is worth len(Priority), the last is worth 1. Matching is
// case-insensitive exact equality.
func (f Filters) Score(attrs models.Attributes) int {
	score := 0
	for i, field := range f.Priority {
		want := f.Values[field]
		if want == "" {
			continue
		}
		if strings.EqualFold(attrs.Field(field), want) {
			score += len(f.Priority) - i
		}
	}
	return score
}

// Matches reports whether attrs satisfies every active filter field.
// Used for hard filtering; fields with empty wanted values pass.
func (f Filters) Matches(attrs models.Attributes) bool {
	for field, want := range f.Values {
		if want == "" {
			continue
		}
		if !strings.EqualFold(attrs.Field(field), want) {
			return false
		}
	}
	return true
}

// RankTrending orders venue activity by live count descending. Ties
// break by venue name ascending so the board is stable across refreshes
// regardless of map iteration order upstream. topN <= 0 returns all.
func RankTrending(acts []models.VenueActivity, topN int) []models.VenueActivity {
	out := make([]models.VenueActivity, len(acts))
	copy(out, acts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].VenueKey < out[j].VenueKey
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// RankByFilters orders presence entries by soft filter score descending.
// Zero-score entries stay in the result; within equal scores the input
// order (most recent first) is preserved. Inactive filters return the
// input unchanged.
func RankByFilters(entries []models.PresenceEntry, f Filters) []models.PresenceEntry {
	if !f.Active() {
		out := make([]models.PresenceEntry, len(entries))
		copy(out, entries)
		return out
	}
	type scored struct {
		entry models.PresenceEntry
		score int
	}
	ranked := make([]scored, len(entries))
	for i, e := range entries {
		ranked[i] = scored{entry: e, score: f.Score(e.Attributes)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	out := make([]models.PresenceEntry, len(ranked))
	for i, r := range ranked {
		out[i] = r.entry
	}
	return out
}

// HardFilter keeps only entries that satisfy every active filter field.
// Inactive filters return a copy of the input.
func HardFilter(entries []models.PresenceEntry, f Filters) []models.PresenceEntry {
	out := make([]models.PresenceEntry, 0, len(entries))
	for _, e := range entries {
		if f.Matches(e.Attributes) {
			out = append(out, e)
		}
	}
	return out
}
