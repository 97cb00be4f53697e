// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package models

// RegistryStats is an aggregate view over the retained session window.
type RegistryStats struct {
	// Count is the number of sessions currently retained, bounded by the
	// registry capacity rather than the lifetime total.
	Count int `json:"count"`

	// Breakdown maps device type to the number of retained sessions of
	// that type. Types with zero sessions are omitted.
	Breakdown map[string]int `json:"breakdown"`

	// Recent holds the newest retained sessions, most recent first.
	Recent []*SessionProfile `json:"recent"`
}
