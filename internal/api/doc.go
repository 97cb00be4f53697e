// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

// Package api provides the HTTP surface: capture endpoints (session and
// telemetry submission), monitor endpoints (stats, SSE, WebSocket), the
// login endpoint, and health/metrics. Routing uses Chi with the go-chi
// middleware ecosystem for CORS and rate limiting.
package api
