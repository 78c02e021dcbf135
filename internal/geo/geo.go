// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package geo provides great-circle distance and a spatial hash grid for
// nearest-venue queries. The grid divides space into cells so a nearest
// lookup only inspects cells around the query point instead of scanning
// the whole catalog.
package geo

import (
	"math"
	"sync"
)

const earthRadiusKm = 6371.0

// Distance returns the haversine distance between two points in km.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Point is an entry in the grid.
type Point struct {
	ID  string
	Lat float64
	Lng float64

	cellKey cellKey
}

type cellKey struct {
	x, y int
}

// Grid is a spatial hash grid keyed by ID. Insert with the same ID
// replaces the previous location.
type Grid struct {
	mu       sync.RWMutex
	cells    map[cellKey][]*Point
	entries  map[string]*Point
	cellSize float64 // degrees
}

// NewGrid creates a grid with approximately cellSizeKm-sized cells.
func NewGrid(cellSizeKm float64) *Grid {
	if cellSizeKm <= 0 {
		cellSizeKm = 5
	}
	return &Grid{
		cells:    make(map[cellKey][]*Point),
		entries:  make(map[string]*Point),
		cellSize: cellSizeKm / 111.0, // 1 degree ≈ 111km at the equator
	}
}

func (g *Grid) keyFor(lat, lng float64) cellKey {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return cellKey{
		x: int(math.Floor(lng / g.cellSize)),
		y: int(math.Floor(lat / g.cellSize)),
	}
}

// Insert adds or replaces a point.
func (g *Grid) Insert(id string, lat, lng float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.entries[id]; ok {
		g.removeLocked(existing)
	}

	key := g.keyFor(lat, lng)
	p := &Point{ID: id, Lat: lat, Lng: lng, cellKey: key}
	g.cells[key] = append(g.cells[key], p)
	g.entries[id] = p
}

// Remove deletes a point by ID.
func (g *Grid) Remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.entries[id]
	if !ok {
		return false
	}
	g.removeLocked(p)
	delete(g.entries, id)
	return true
}

func (g *Grid) removeLocked(p *Point) {
	cell := g.cells[p.cellKey]
	for i, e := range cell {
		if e.ID == p.ID {
			cell[i] = cell[len(cell)-1]
			cell = cell[:len(cell)-1]
			break
		}
	}
	if len(cell) == 0 {
		delete(g.cells, p.cellKey)
	} else {
		g.cells[p.cellKey] = cell
	}
}

// Nearest returns the closest point within radiusKm of the query, or
// false when no point qualifies.
func (g *Grid) Nearest(lat, lng, radiusKm float64) (Point, float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	span := int(math.Ceil(radiusKm/111.0/g.cellSize)) + 1
	center := g.keyFor(lat, lng)

	var (
		best     Point
		bestDist = math.Inf(1)
		found    bool
	)
	for dx := -span; dx <= span; dx++ {
		for dy := -span; dy <= span; dy++ {
			for _, p := range g.cells[cellKey{x: center.x + dx, y: center.y + dy}] {
				d := Distance(lat, lng, p.Lat, p.Lng)
				if d <= radiusKm && d < bestDist {
					best = *p
					bestDist = d
					found = true
				}
			}
		}
	}
	return best, bestDist, found
}

// Size returns the number of points in the grid.
func (g *Grid) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// Clear removes all points.
func (g *Grid) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cells = make(map[cellKey][]*Point)
	g.entries = make(map[string]*Point)
}
