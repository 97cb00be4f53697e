// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

/*
Package models defines data structures for the Flytrap application.

This package contains all data models used throughout the application,
including session profiles, telemetry samples, registry aggregates, and API
request/response structures. It serves as the single source of truth for
data structure definitions.

Key Components:

  - SessionProfile: A captured visitor session with device, browser, display,
    network, locale, and hardware descriptors plus optional identity and GeoIP
    enrichment
  - TelemetrySample: The replace-only frame/audio/location slot attached to a
    session by the continuous capture loop
  - RegistryStats: Aggregate view over the retained session window
  - SubmissionResponse / TelemetryResponse: Wire shapes for the capture API

All JSON field names use camelCase to match the submission clients.
*/
package models
