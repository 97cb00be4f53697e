// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/flytrap/internal/logging"
	"github.com/tomtom215/flytrap/internal/validation"
)

// sanitizeLogValue removes control characters from strings before they reach
// the log, preventing attacker-supplied values from forging log entries.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, response interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// errorResponse is the shared failure envelope for capture endpoints.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// respondError sends a failure response. The message is what the caller
// sees; err carries the internal detail and only reaches the log.
func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		logging.Error().Str("error", sanitizeLogValue(err.Error())).Msg("API error")
	}

	respondJSON(w, status, &errorResponse{Success: false, Error: message})
}

// validateRequest validates a struct using the shared validator singleton.
// Returns an empty string when validation passes.
func validateRequest(v interface{}) string {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return ""
	}
	return validationErr.ToAPIError().Message
}
