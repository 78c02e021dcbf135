// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package models

import (
	"sort"
	"time"
)

// RoomKind tags the three chat room address classes.
type RoomKind string

const (
	RoomCity  RoomKind = "city"
	RoomVenue RoomKind = "venue"
	RoomDM    RoomKind = "dm"
)

// PairKeySeparator joins the two sorted identity keys of a DM room.
const PairKeySeparator = "_"

// ChatRoomAddress is the tagged variant identifying a chat room. Exactly
// one of City, VenueKey or PairKey is set, according to Kind.
type ChatRoomAddress struct {
	Kind     RoomKind `json:"kind"`
	City     string   `json:"city,omitempty"`
	VenueKey string   `json:"venue_key,omitempty"`
	PairKey  string   `json:"pair_key,omitempty"`
}

// RoomID returns the stable storage/topic identifier for the address,
// mirroring the original path scheme (city-<city>, venue-<key>, dm rooms
// keyed by pair key).
func (a ChatRoomAddress) RoomID() string {
	switch a.Kind {
	case RoomCity:
		return "city-" + NormalizeKey(a.City)
	case RoomVenue:
		return "venue-" + a.VenueKey
	case RoomDM:
		return "dm-" + a.PairKey
	default:
		return ""
	}
}

// PairKey derives the commutative DM room key for two identities:
// sorted, joined with PairKeySeparator. The same two identities always
// produce the same key regardless of argument order.
func PairKey(idA, idB string) string {
	pair := []string{idA, idB}
	sort.Strings(pair)
	return pair[0] + PairKeySeparator + pair[1]
}

// DMRoom is the merge-upserted metadata document for a two-party room.
// Creation is create-if-absent; concurrent partial updates must not
// clobber fields they do not carry.
type DMRoom struct {
	PairKey      string            `json:"pair_key"`
	Participants []string          `json:"participants"`
	DisplayNames map[string]string `json:"display_names,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ChatMessage is one append-only message in a room.
type ChatMessage struct {
	MessageID string    `json:"message_id"`
	RoomID    string    `json:"room_id"`
	From      string    `json:"from"`
	Emoji     string    `json:"emoji,omitempty"`
	Text      string    `json:"text"`
	VenueKey  string    `json:"venue_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Votes     int       `json:"votes,omitempty"`
}
