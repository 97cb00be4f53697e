// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

/*
Package config provides layered configuration loading for Flytrap using
Koanf v2.

Configuration is merged from three sources, later layers overriding earlier
ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML config file (config.yaml, or CONFIG_PATH)
 3. Environment variables (HTTP_PORT, REGISTRY_CAPACITY, GEOIP_TIMEOUT, ...)

The merged result is validated before use; validation failures are fatal at
startup. The resulting Config is immutable and safe for concurrent reads.

Sections:

  - Server: HTTP bind address, port, timeouts, environment mode
  - Registry: retained session capacity and stats window
  - Broker: subscriber buffering and heartbeat cadence
  - Telemetry: ingestion body limits
  - GeoIP: ip-api.com lookup endpoint, deadline, cache, and rate limit
  - Capture: agent loop cadence and submission deadlines
  - Security: monitor auth, per-IP rate limiting, CORS
  - Logging: zerolog level and format
*/
package config
