// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/flytrap/internal/auth"
	"github.com/tomtom215/flytrap/internal/config"
	"github.com/tomtom215/flytrap/internal/events"
	"github.com/tomtom215/flytrap/internal/geoip"
	"github.com/tomtom215/flytrap/internal/logging"
	"github.com/tomtom215/flytrap/internal/profile"
	"github.com/tomtom215/flytrap/internal/registry"
)

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	config      *config.Config
	registry    *registry.Registry
	broker      *events.Broker
	builder     *profile.Builder
	jwtManager  *auth.JWTManager
	credentials *auth.CredentialChecker
	version     string
	startTime   time.Time
}

// NewHandler creates a handler with all dependencies injected. jwtManager
// and credentials may be nil when auth is disabled.
func NewHandler(cfg *config.Config, reg *registry.Registry, broker *events.Broker, geo *geoip.Service, jwtManager *auth.JWTManager, credentials *auth.CredentialChecker, version string) *Handler {
	var enricher profile.Enricher
	if geo != nil {
		enricher = geo
	}

	return &Handler{
		config:      cfg,
		registry:    reg,
		broker:      broker,
		builder:     profile.NewBuilder(enricher),
		jwtManager:  jwtManager,
		credentials: credentials,
		version:     version,
		startTime:   time.Now(),
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout against slow-client attacks.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins. Browsers
// always send Origin; an empty header means a non-browser client, which is
// rejected because allowing it would bypass CORS entirely.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
