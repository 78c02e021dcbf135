// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package directory

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/seek-irl/seekd/internal/models"
)

// ParseCSV reads the venue sheet export. Expected header columns (case
// insensitive): id, bar (or name), city, latitude, longitude, type,
// website, imageurl. Rows missing a name, city, or parseable coordinates
// are dropped, matching the import pipeline's tolerance for dirty rows.
func ParseCSV(r io.Reader) ([]models.Venue, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	field := func(row []string, names ...string) string {
		for _, n := range names {
			if i, ok := col[n]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}

	var venues []models.Venue
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Skip malformed rows rather than failing the whole import.
			continue
		}

		name := field(row, "bar", "name")
		city := field(row, "city")
		if name == "" || city == "" {
			continue
		}

		lat, errLat := strconv.ParseFloat(field(row, "latitude", "lat"), 64)
		lng, errLng := strconv.ParseFloat(field(row, "longitude", "lng"), 64)
		if errLat != nil || errLng != nil {
			continue
		}

		id := field(row, "id")
		if id == "" {
			id = name
		}

		venues = append(venues, models.Venue{
			ID:       id,
			Name:     name,
			City:     city,
			Type:     field(row, "type"),
			Lat:      lat,
			Lng:      lng,
			Website:  field(row, "website"),
			ImageURL: field(row, "imageurl", "image_url"),
		})
	}
	return venues, nil
}
