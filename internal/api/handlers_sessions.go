// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/flytrap/internal/logging"
	"github.com/tomtom215/flytrap/internal/models"
	"github.com/tomtom215/flytrap/internal/profile"
)

// SubmitSession accepts a captured visitor descriptor bundle, builds a
// profile from it, records it, and broadcasts it to monitors. Identity
// fields are optional; a submission with nothing but a user agent still
// produces a fully populated profile.
func (h *Handler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	var sub profile.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if msg := validateRequest(&sub); msg != "" {
		respondError(w, http.StatusBadRequest, msg, nil)
		return
	}

	p := h.builder.Build(r.Context(), &sub, r.RemoteAddr)
	id, evicted := h.registry.Record(p)

	logging.Info().
		Int64("profile_id", id).
		Str("session_token", p.SessionToken).
		Str("device_type", p.Device.Type).
		Bool("has_identity", p.HasIdentity()).
		Bool("evicted_oldest", evicted).
		Msg("Session recorded")

	h.broker.PublishProfile(p)

	respondJSON(w, http.StatusOK, &models.SubmissionResponse{
		Success:      true,
		ProfileID:    id,
		SessionToken: p.SessionToken,
	})
}

// SessionsAck answers capture-page liveness probes. The page polls this
// before showing the submission form so a dead backend fails silently.
func (h *Handler) SessionsAck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SessionStats returns the monitor dashboard summary: total session count,
// per-device-type breakdown, and the most recent profiles newest first.
func (h *Handler) SessionStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.registry.Stats())
}
