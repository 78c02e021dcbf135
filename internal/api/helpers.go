// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package api is the HTTP surface: check-ins, venue resolution,
// presence and trending reads, session gates, chat, and the websocket
// upgrade endpoint.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/seek-irl/seekd/internal/logging"
	"github.com/seek-irl/seekd/internal/models"
)

// Error codes the client maps to UI states. The NO_* family marks
// recoverable preconditions (prompt the user), not failures.
const (
	codeValidation      = "VALIDATION_ERROR"
	codeNoCity          = "NO_CITY"
	codeNoVenue         = "NO_VENUE"
	codeNoPeer          = "NO_PEER"
	codeRateLimited     = "RATE_LIMITED"
	codeMessageTooLong  = "MESSAGE_TOO_LONG"
	codeEmptyMessage    = "EMPTY_MESSAGE"
	codeMessageNotFound = "MESSAGE_NOT_FOUND"
	codeInternal        = "INTERNAL_ERROR"
	codeBadRequest      = "BAD_REQUEST"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", generateETag(data))
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("write response")
	}
}

func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, &models.APIResponse{Status: "ok", Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("api error")
	}
	respondJSON(w, status, &models.APIResponse{
		Status: "error",
		Error:  &models.APIError{Code: code, Message: message},
	})
}

// generateETag hashes the body with FNV-1a. Weak validation is enough
// for the polling clients that use it.
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}

// decodeBody decodes and validates a JSON request body. A false return
// means the response has already been written.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "malformed request body", err)
		return false
	}
	if err := validate.Struct(v); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, validationMessage(err), nil)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return "invalid fields: " + strings.Join(fields, ", ")
	}
	return "request validation failed"
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func queryFloat(r *http.Request, name string) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
