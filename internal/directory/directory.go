// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package directory holds the read-mostly venue catalog per city. It is
// populated from the out-of-band CSV import and refreshed on a schedule;
// staleness between refreshes is acceptable by contract.
package directory

import (
	"sort"
	"strings"
	"sync"

	"github.com/seek-irl/seekd/internal/geo"
	"github.com/seek-irl/seekd/internal/models"
)

// Directory indexes venues by city with a spatial grid per city for
// nearest-by-coordinate lookups. All methods are safe for concurrent use;
// Replace swaps the whole catalog atomically on refresh.
type Directory struct {
	mu         sync.RWMutex
	byCity     map[string][]models.Venue          // city key -> venues
	byKey      map[string]map[string]models.Venue // city key -> venue key -> venue
	grids      map[string]*geo.Grid
	cellSizeKm float64
}

// New creates an empty directory. cellSizeKm sizes the per-city spatial
// grid cells.
func New(cellSizeKm float64) *Directory {
	return &Directory{
		byCity:     make(map[string][]models.Venue),
		byKey:      make(map[string]map[string]models.Venue),
		grids:      make(map[string]*geo.Grid),
		cellSizeKm: cellSizeKm,
	}
}

// Replace swaps the entire catalog with the given venues.
func (d *Directory) Replace(venues []models.Venue) {
	byCity := make(map[string][]models.Venue)
	byKey := make(map[string]map[string]models.Venue)
	grids := make(map[string]*geo.Grid)

	for _, v := range venues {
		city := models.NormalizeKey(v.City)
		key := v.Key()
		if city == "" || key == "" {
			continue
		}
		if _, ok := byKey[city]; !ok {
			byKey[city] = make(map[string]models.Venue)
			grids[city] = geo.NewGrid(d.cellSizeKm)
		}
		if _, dup := byKey[city][key]; dup {
			continue
		}
		byKey[city][key] = v
		byCity[city] = append(byCity[city], v)
		grids[city].Insert(key, v.Lat, v.Lng)
	}

	d.mu.Lock()
	d.byCity = byCity
	d.byKey = byKey
	d.grids = grids
	d.mu.Unlock()
}

// Cities returns the normalized city keys with at least one venue, sorted.
func (d *Directory) Cities() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cities := make([]string, 0, len(d.byCity))
	for city := range d.byCity {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return cities
}

// VenuesForCity returns the venues known for a city.
func (d *Directory) VenuesForCity(city string) []models.Venue {
	d.mu.RLock()
	defer d.mu.RUnlock()
	venues := d.byCity[models.NormalizeKey(city)]
	out := make([]models.Venue, len(venues))
	copy(out, venues)
	return out
}

// Lookup returns the directory entry for a canonical venue key in a city.
func (d *Directory) Lookup(city, venueKey string) (models.Venue, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.byKey[models.NormalizeKey(city)][venueKey]
	return v, ok
}

// Nearest returns the closest venue to the coordinate within radiusKm,
// searching only the given city's entries.
func (d *Directory) Nearest(city string, lat, lng, radiusKm float64) (models.Venue, float64, bool) {
	cityKey := models.NormalizeKey(city)

	d.mu.RLock()
	grid := d.grids[cityKey]
	d.mu.RUnlock()

	if grid == nil {
		return models.Venue{}, 0, false
	}
	p, dist, ok := grid.Nearest(lat, lng, radiusKm)
	if !ok {
		return models.Venue{}, 0, false
	}
	v, ok := d.Lookup(cityKey, p.ID)
	return v, dist, ok
}

// Suggest returns venues in the city whose name contains the query
// substring, for incremental search. Case-insensitive containment only;
// no fuzzy matching.
func (d *Directory) Suggest(city, query string, limit int) []models.Venue {
	q := models.NormalizeKey(query)
	if q == "" {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []models.Venue
	for _, v := range d.byCity[models.NormalizeKey(city)] {
		if strings.Contains(v.Key(), q) {
			out = append(out, v)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// Register adds a manually entered venue, keyed by (normalized name,
// city). Idempotent: re-registering an existing pair is a no-op and
// returns false.
func (d *Directory) Register(v models.Venue) bool {
	city := models.NormalizeKey(v.City)
	key := v.Key()
	if city == "" || key == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byKey[city][key]; exists {
		return false
	}
	if _, ok := d.byKey[city]; !ok {
		d.byKey[city] = make(map[string]models.Venue)
		d.grids[city] = geo.NewGrid(d.cellSizeKm)
	}
	d.byKey[city][key] = v
	d.byCity[city] = append(d.byCity[city], v)
	if v.Lat != 0 || v.Lng != 0 {
		d.grids[city].Insert(key, v.Lat, v.Lng)
	}
	return true
}

// Size returns the total venue count across cities.
func (d *Directory) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, vs := range d.byCity {
		n += len(vs)
	}
	return n
}
