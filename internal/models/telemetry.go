// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package models

import (
	"time"
)

// TelemetrySample is the latest frame/audio/location capture pushed by the
// capture loop. It is a replace-only slot: a new sample fully supersedes the
// previous one and there is no queue or history.
type TelemetrySample struct {
	// Frame is a base64-encoded image payload (typically a JPEG data URL).
	Frame *string `json:"frame,omitempty"`

	// AudioLevel is a normalized loudness scalar in [0,100].
	AudioLevel *float64 `json:"audioLevel,omitempty"`

	// Location is the most recent position fix, if location was granted.
	Location *GeoPoint `json:"location,omitempty"`

	// Grants reflects what the capture loop actually obtained, independent
	// of whether each modality produced data this cycle.
	Grants Grants `json:"grants"`

	CapturedAt time.Time `json:"capturedAt"`
}

// GeoPoint is a client-side position fix.
type GeoPoint struct {
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lon"`
	AccuracyMeters float64 `json:"accuracyMeters"`
}

// Grants records which capture modalities the visitor granted.
type Grants struct {
	Camera     bool `json:"camera"`
	Microphone bool `json:"microphone"`
	Location   bool `json:"location"`
}

// Any reports whether at least one modality was granted.
func (g Grants) Any() bool {
	return g.Camera || g.Microphone || g.Location
}
