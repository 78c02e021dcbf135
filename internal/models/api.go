// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package models

// APIResponse is the uniform HTTP response envelope.
type APIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *APIError `json:"error,omitempty"`
}

// APIError carries a machine-readable code plus a human message.
// Recoverable precondition failures (no resolved venue/city) use codes the
// client maps to an explicit prompt rather than a silent fallback.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
