// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

// Package middleware provides HTTP middleware for the Flytrap API:
// request ID propagation, Prometheus instrumentation, and request body
// size limits. Router-level concerns (CORS, per-IP rate limiting) use
// go-chi middleware directly and are wired in the api package.
package middleware
