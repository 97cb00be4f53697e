// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/flytrap/internal/logging"
	"github.com/tomtom215/flytrap/internal/models"
)

// Login authenticates a monitor and issues a JWT, returned both in the
// response body and as an HTTP-only cookie so the dashboard's EventSource
// requests carry it automatically.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, &models.LoginResponse{Error: "invalid request body"})
		return
	}

	if msg := validateRequest(&req); msg != "" {
		respondJSON(w, http.StatusBadRequest, &models.LoginResponse{Error: msg})
		return
	}

	if !h.config.Security.AuthEnabled || h.jwtManager == nil || h.credentials == nil {
		respondJSON(w, http.StatusForbidden, &models.LoginResponse{Error: "authentication is disabled"})
		return
	}

	if err := h.credentials.Verify(req.Username, req.Password); err != nil {
		logging.Warn().Str("username", sanitizeLogValue(req.Username)).Msg("Login failed")
		respondJSON(w, http.StatusUnauthorized, &models.LoginResponse{Error: "invalid username or password"})
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}

	expiresIn := h.jwtManager.Timeout()
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(expiresIn),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	logging.Info().Str("username", sanitizeLogValue(req.Username)).Msg("Monitor logged in")

	respondJSON(w, http.StatusOK, &models.LoginResponse{
		Success:   true,
		Token:     token,
		ExpiresIn: int64(expiresIn.Seconds()),
	})
}
