// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package models defines the core data types shared across Seekd:
// check-in events, derived presence views, venues, chat room addresses,
// and the client session gate.
package models

import (
	"strings"
	"time"
)

// NotAtVenueKey is the sentinel venue key used when an identity has
// explicitly declared they are not at any venue. It is never a valid
// canonical venue key.
const NotAtVenueKey = "none"

// Attributes is the closed demographic record attached to a check-in.
// Fields are optional; allowed values for Gender, Sexuality and HomeState
// are enumerated (see AllowedGenders et al.) and validated at the
// submission boundary, not here.
type Attributes struct {
	Name        string `json:"name" validate:"required,max=80"`
	Age         int    `json:"age" validate:"omitempty,gte=18,lte=120"`
	Gender      string `json:"gender,omitempty"`
	Sexuality   string `json:"sexuality,omitempty"`
	College     string `json:"college,omitempty" validate:"max=120"`
	HomeState   string `json:"home_state,omitempty"`
	HomeCountry string `json:"home_country,omitempty" validate:"max=80"`
	OpenToChat  bool   `json:"open_to_chat,omitempty"`
}

// Field returns the named attribute value for filter matching.
// Unknown fields return the empty string.
func (a Attributes) Field(name string) string {
	switch name {
	case "gender":
		return a.Gender
	case "sexuality":
		return a.Sexuality
	case "college":
		return a.College
	case "home_state", "homeState":
		return a.HomeState
	case "home_country", "homeCountry":
		return a.HomeCountry
	default:
		return ""
	}
}

// CheckInEvent is one immutable presence declaration. Events are appended
// to the store and never mutated; relevance is a view-time window concern,
// so events are not deleted either.
type CheckInEvent struct {
	EventID     string     `json:"event_id"`
	IdentityKey string     `json:"identity_key"`
	VenueRaw    string     `json:"venue_raw"`
	VenueKey    string     `json:"venue_key"`
	City        string     `json:"city"`
	Lat         float64    `json:"lat,omitempty"`
	Lng         float64    `json:"lng,omitempty"`
	Attributes  Attributes `json:"attributes"`
	// CreatedAt is assigned by the store at write time, monotonic per writer.
	CreatedAt time.Time `json:"created_at"`
}

// AtVenue reports whether the event places the identity at a real venue.
func (e *CheckInEvent) AtVenue() bool {
	return e.VenueKey != "" && e.VenueKey != NotAtVenueKey
}

// NormalizeKey produces the canonical lowercased, trimmed form used for
// venue keys, identity fingerprint components, and directory dedup keys.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AllowedGenders matches the original submission form options.
var AllowedGenders = []string{
	"Man",
	"Woman",
	"Transgender",
	"Non-binary/non-conforming",
	"Prefer not to respond",
}

// AllowedSexualities matches the original submission form options.
var AllowedSexualities = []string{
	"Heterosexual (straight)",
	"Gay",
	"Lesbian",
	"Bisexual",
	"Queer",
	"Asexual",
	"Pansexual",
	"Questioning",
	"Prefer not to specify",
}

// AllowedHomeStates lists the US states accepted by the form, plus the
// escape hatch that enables the home-country field.
var AllowedHomeStates = []string{
	"Alabama", "Alaska", "Arizona", "Arkansas", "California", "Colorado",
	"Connecticut", "Delaware", "Florida", "Georgia", "Hawaii", "Idaho",
	"Illinois", "Indiana", "Iowa", "Kansas", "Kentucky", "Louisiana",
	"Maine", "Maryland", "Massachusetts", "Michigan", "Minnesota",
	"Mississippi", "Missouri", "Montana", "Nebraska", "Nevada",
	"New Hampshire", "New Jersey", "New Mexico", "New York",
	"North Carolina", "North Dakota", "Ohio", "Oklahoma", "Oregon",
	"Pennsylvania", "Rhode Island", "South Carolina", "South Dakota",
	"Tennessee", "Texas", "Utah", "Vermont", "Virginia", "Washington",
	"West Virginia", "Wisconsin", "Wyoming",
	"Not from the U.S.",
}

func inList(value string, allowed []string) bool {
	for _, v := range allowed {
		if v == value {
			return true
		}
	}
	return false
}

// ValidGender reports whether the value is empty or an allowed option.
func ValidGender(v string) bool { return v == "" || inList(v, AllowedGenders) }

// ValidSexuality reports whether the value is empty or an allowed option.
func ValidSexuality(v string) bool { return v == "" || inList(v, AllowedSexualities) }

// ValidHomeState reports whether the value is empty or an allowed option.
func ValidHomeState(v string) bool { return v == "" || inList(v, AllowedHomeStates) }
