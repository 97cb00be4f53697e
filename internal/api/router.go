// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/flytrap/internal/auth"
	"github.com/tomtom215/flytrap/internal/config"
	"github.com/tomtom215/flytrap/internal/middleware"
)

// Router wires handlers to routes with the middleware stack.
type Router struct {
	handler       *Handler
	authMW        *auth.Middleware
	chiMiddleware *ChiMiddleware
	telemetryMax  int64
}

// NewRouter creates a router. authMW may be a pass-through middleware when
// auth is disabled.
func NewRouter(handler *Handler, authMW *auth.Middleware, cfg *config.Config) *Router {
	return &Router{
		handler:       handler,
		authMW:        authMW,
		chiMiddleware: NewChiMiddleware(&cfg.Security),
		telemetryMax:  cfg.Telemetry.MaxBodyBytes,
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)
	})

	// Capture endpoints. Unauthenticated: the visitor's browser is the
	// client and has no credentials.
	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/", router.handler.SessionsAck)
		r.Post("/", router.handler.SubmitSession)

		// Stats are monitor-only.
		r.With(chiMiddleware(router.authMW.Authenticate)).Get("/stats", router.handler.SessionStats)
	})

	r.Route("/api/v1/telemetry", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(middleware.BodyLimit(router.telemetryMax)))

		r.Get("/", router.handler.TelemetryAck)
		r.Post("/", router.handler.SubmitTelemetry)
	})

	// Monitor event streams. Both transports feed from the same broker.
	r.Route("/api/v1/events", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(router.authMW.Authenticate))
		r.Get("/", router.handler.Events)
	})

	r.Route("/api/v1/ws", func(r chi.Router) {
		r.Use(chiMiddleware(router.authMW.Authenticate))
		r.Get("/", router.handler.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
