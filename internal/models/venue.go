// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package models

// Venue is one entry in the read-mostly venue catalog. Supplied by the
// out-of-band CSV import; staleness is acceptable.
type Venue struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	City     string  `json:"city"`
	Type     string  `json:"type,omitempty"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Website  string  `json:"website,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
}

// Key returns the canonical venue key for this entry.
func (v Venue) Key() string {
	return NormalizeKey(v.Name)
}
