// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package resolve maps a raw venue reference (free text or a geolocation)
// to a canonical venue key against the directory. It is the single
// resolution path shared by check-in, venue views, and trending; screens
// must not re-implement it.
package resolve

import (
	"errors"

	"github.com/seek-irl/seekd/internal/directory"
	"github.com/seek-irl/seekd/internal/logging"
	"github.com/seek-irl/seekd/internal/models"
)

var (
	// ErrNoCity indicates resolution was attempted without an active city.
	ErrNoCity = errors.New("resolve: no active city")

	// ErrNoInput indicates neither text nor coordinates were provided and
	// the caller did not declare "not at a venue".
	ErrNoInput = errors.New("resolve: no venue input")
)

// Input carries the user's venue reference. Coordinates are optional:
// geolocation denial simply leaves HasCoords false and the coordinate
// path is skipped, never retried.
type Input struct {
	RawText   string
	HasCoords bool
	Lat, Lng  float64

	// NotListed declares the venue is absent from the directory; RawText
	// is accepted as manual entry and optionally registered.
	NotListed bool

	// NotAtVenue declares the user is not at any venue.
	NotAtVenue bool
}

// Resolution is the outcome of venue resolution.
type Resolution struct {
	VenueKey string
	VenueRaw string
	// Matched is the directory entry behind the key, when one exists.
	Matched *models.Venue
	// Registered reports that a manual entry was added to the directory.
	Registered bool
}

// Resolver resolves venue references against the directory.
type Resolver struct {
	dir      *directory.Directory
	radiusKm float64
	// register controls whether manual entries are added to the directory
	// for future resolution.
	register bool
}

// New creates a resolver. radiusKm is the maximum coordinate-match
// distance; beyond it the coordinate path reports no match and the caller
// falls back to text entry.
func New(dir *directory.Directory, radiusKm float64, registerManual bool) *Resolver {
	return &Resolver{dir: dir, radiusKm: radiusKm, register: registerManual}
}

// Resolve maps the input to a canonical venue identity within the city.
//
// Precedence: explicit "not at a venue" > manual not-listed entry >
// raw text > nearest-by-coordinate. A coordinate match farther than the
// radius threshold is treated as no match, not as a weak match.
func (r *Resolver) Resolve(in Input, city string) (Resolution, error) {
	if city == "" {
		return Resolution{}, ErrNoCity
	}

	if in.NotAtVenue {
		return Resolution{VenueKey: models.NotAtVenueKey, VenueRaw: ""}, nil
	}

	if in.NotListed && in.RawText != "" {
		return r.resolveManual(in, city), nil
	}

	if in.RawText != "" {
		return r.resolveText(in.RawText, city), nil
	}

	if in.HasCoords {
		if res, ok := r.resolveCoords(in, city); ok {
			return res, nil
		}
		// No directory entry within the radius; the caller must offer
		// text entry.
		return Resolution{}, ErrNoInput
	}

	return Resolution{}, ErrNoInput
}

func (r *Resolver) resolveText(raw, city string) Resolution {
	key := models.NormalizeKey(raw)
	res := Resolution{VenueKey: key, VenueRaw: raw}
	if v, ok := r.dir.Lookup(city, key); ok {
		res.Matched = &v
		res.VenueRaw = v.Name
	}
	return res
}

func (r *Resolver) resolveCoords(in Input, city string) (Resolution, bool) {
	v, dist, ok := r.dir.Nearest(city, in.Lat, in.Lng, r.radiusKm)
	if !ok {
		logging.Debug().
			Str("city", city).
			Float64("radius_km", r.radiusKm).
			Msg("no venue within radius")
		return Resolution{}, false
	}
	logging.Debug().
		Str("venue", v.Key()).
		Float64("distance_km", dist).
		Msg("coordinate resolution matched")
	return Resolution{VenueKey: v.Key(), VenueRaw: v.Name, Matched: &v}, true
}

func (r *Resolver) resolveManual(in Input, city string) Resolution {
	key := models.NormalizeKey(in.RawText)
	res := Resolution{VenueKey: key, VenueRaw: in.RawText}

	if v, ok := r.dir.Lookup(city, key); ok {
		// Already known after all; treat as a text match.
		res.Matched = &v
		return res
	}
	if r.register {
		v := models.Venue{ID: key, Name: in.RawText, City: city}
		if in.HasCoords {
			v.Lat, v.Lng = in.Lat, in.Lng
		}
		res.Registered = r.dir.Register(v)
	}
	return res
}
