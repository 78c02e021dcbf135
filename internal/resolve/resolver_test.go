// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package resolve

import (
	"errors"
	"testing"

	"github.com/seek-irl/seekd/internal/directory"
	"github.com/seek-irl/seekd/internal/models"
)

func testDirectory() *directory.Directory {
	d := directory.New(5)
	d.Replace([]models.Venue{
		{ID: "1", Name: "Spats", City: "Berkeley", Lat: 37.8690, Lng: -122.2680},
		{ID: "2", Name: "Kip's", City: "Berkeley", Lat: 37.8680, Lng: -122.2660},
	})
	return d
}

func TestResolveRequiresCity(t *testing.T) {
	r := New(testDirectory(), 0.5, true)
	if _, err := r.Resolve(Input{RawText: "Spats"}, ""); !errors.Is(err, ErrNoCity) {
		t.Fatalf("err = %v, want ErrNoCity", err)
	}
}

func TestResolveNotAtVenueSentinel(t *testing.T) {
	r := New(testDirectory(), 0.5, true)
	res, err := r.Resolve(Input{NotAtVenue: true}, "Berkeley")
	if err != nil {
		t.Fatal(err)
	}
	if res.VenueKey != models.NotAtVenueKey {
		t.Errorf("venue key = %q, want sentinel", res.VenueKey)
	}
}

func TestResolveTextPath(t *testing.T) {
	r := New(testDirectory(), 0.5, true)

	res, err := r.Resolve(Input{RawText: "  SPATS "}, "Berkeley")
	if err != nil {
		t.Fatal(err)
	}
	if res.VenueKey != "spats" {
		t.Errorf("venue key = %q, want spats", res.VenueKey)
	}
	if res.Matched == nil || res.Matched.ID != "1" {
		t.Error("expected directory match for known venue")
	}
	// Display string comes from the directory when matched.
	if res.VenueRaw != "Spats" {
		t.Errorf("venue raw = %q, want Spats", res.VenueRaw)
	}

	// Unknown text still resolves (manual semantics without registration).
	res, err = r.Resolve(Input{RawText: "Pop-Up Bar"}, "Berkeley")
	if err != nil {
		t.Fatal(err)
	}
	if res.VenueKey != "pop-up bar" || res.Matched != nil {
		t.Errorf("unknown text resolution = %+v", res)
	}
	if res.VenueRaw != "Pop-Up Bar" {
		t.Errorf("original display string lost: %q", res.VenueRaw)
	}
}

func TestResolveCoordinatePath(t *testing.T) {
	r := New(testDirectory(), 0.5, true)

	res, err := r.Resolve(Input{HasCoords: true, Lat: 37.8691, Lng: -122.2681}, "Berkeley")
	if err != nil {
		t.Fatal(err)
	}
	if res.VenueKey != "spats" {
		t.Errorf("nearest = %q, want spats", res.VenueKey)
	}
}

func TestResolveCoordinateBeyondRadius(t *testing.T) {
	r := New(testDirectory(), 0.5, true)

	// San Francisco coordinates against the Berkeley directory: over the
	// threshold, so the caller must fall back to text entry.
	_, err := r.Resolve(Input{HasCoords: true, Lat: 37.7749, Lng: -122.4194}, "Berkeley")
	if !errors.Is(err, ErrNoInput) {
		t.Fatalf("err = %v, want ErrNoInput fallback", err)
	}
}

func TestResolveTextBeatsCoords(t *testing.T) {
	r := New(testDirectory(), 0.5, true)

	// User typed Kip's while standing next to Spats; the explicit text wins.
	res, err := r.Resolve(Input{RawText: "Kip's", HasCoords: true, Lat: 37.8690, Lng: -122.2680}, "Berkeley")
	if err != nil {
		t.Fatal(err)
	}
	if res.VenueKey != "kip's" {
		t.Errorf("venue key = %q, want kip's", res.VenueKey)
	}
}

func TestResolveManualRegistration(t *testing.T) {
	dir := testDirectory()
	r := New(dir, 0.5, true)

	res, err := r.Resolve(Input{RawText: "Secret Bar", NotListed: true}, "Berkeley")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Registered {
		t.Error("first manual entry should register")
	}

	// Second submission of the same manual entry: idempotent.
	res, err = r.Resolve(Input{RawText: "secret bar", NotListed: true}, "Berkeley")
	if err != nil {
		t.Fatal(err)
	}
	if res.Registered {
		t.Error("re-registration must be a no-op")
	}
	if res.Matched == nil {
		t.Error("previously registered venue should now match")
	}
}

func TestResolveManualWithoutRegistration(t *testing.T) {
	dir := testDirectory()
	r := New(dir, 0.5, false)

	res, err := r.Resolve(Input{RawText: "Secret Bar", NotListed: true}, "Berkeley")
	if err != nil {
		t.Fatal(err)
	}
	if res.Registered {
		t.Error("registration disabled")
	}
	if _, ok := dir.Lookup("Berkeley", "secret bar"); ok {
		t.Error("directory should be untouched")
	}
}

func TestResolveNoInput(t *testing.T) {
	r := New(testDirectory(), 0.5, true)
	if _, err := r.Resolve(Input{}, "Berkeley"); !errors.Is(err, ErrNoInput) {
		t.Fatalf("err = %v, want ErrNoInput", err)
	}
}
