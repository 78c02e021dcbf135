// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package identity derives the stable identity key used to deduplicate a
// user's check-ins.
//
// Authenticated users resolve to their auth ID. Anonymous users resolve to
// a best-effort demographic fingerprint: two different anonymous people
// with identical name/college/home-state/home-country collide by design.
// This is a documented product limitation, not an error condition.
package identity

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/seek-irl/seekd/internal/models"
)

// AnonPrefix marks fingerprint-derived identity keys.
const AnonPrefix = "anon:"

// Resolve returns the identity key for a submission. authID is the
// authenticated identity ID, or empty for anonymous users. Pure function
// of its inputs.
func Resolve(authID string, attrs models.Attributes) string {
	if authID != "" {
		return authID
	}
	return AnonPrefix + Fingerprint(attrs)
}

// Fingerprint hashes the normalized demographic components. The component
// order and separator are fixed; changing either would orphan every
// anonymous user's presence history.
func Fingerprint(attrs models.Attributes) string {
	h := sha256.New()
	h.Write([]byte(models.NormalizeKey(attrs.Name)))
	h.Write([]byte("|"))
	h.Write([]byte(models.NormalizeKey(attrs.College)))
	h.Write([]byte("|"))
	h.Write([]byte(models.NormalizeKey(attrs.HomeState)))
	h.Write([]byte("|"))
	h.Write([]byte(models.NormalizeKey(attrs.HomeCountry)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// IsAnonymous reports whether the key was fingerprint-derived.
func IsAnonymous(identityKey string) bool {
	return len(identityKey) > len(AnonPrefix) && identityKey[:len(AnonPrefix)] == AnonPrefix
}
