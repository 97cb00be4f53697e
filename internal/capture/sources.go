// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

// Package capture implements the continuous capture loop: a controller that
// acquires device sources once, samples them on a fixed tick, and streams
// telemetry to the server with at-most-one submission in flight.
package capture

import (
	"context"

	"github.com/tomtom215/flytrap/internal/models"
)

// FrameSource produces encoded image frames. Next returns false when no
// frame is ready this cycle; the loop simply skips the frame field.
type FrameSource interface {
	Next() (frame string, ready bool)
}

// AudioLevelSource reports a normalized loudness scalar in [0,100].
type AudioLevelSource interface {
	Level() float64
}

// LocationSource produces position fixes. Current must honor the context
// deadline; a timed-out fix falls back to the controller's cached one.
type LocationSource interface {
	Current(ctx context.Context) (*models.GeoPoint, error)
}

// Provider acquires device sources. Acquisition happens once per session;
// Release must be idempotent and safe to call regardless of which
// acquisitions succeeded.
type Provider interface {
	AcquireCamera(ctx context.Context) (FrameSource, error)
	AcquireMicrophone(ctx context.Context) (AudioLevelSource, error)
	AcquireLocation(ctx context.Context) (LocationSource, error)
	Release()
}

// Submitter delivers one telemetry sample to the server.
type Submitter interface {
	Submit(ctx context.Context, sample *models.TelemetrySample) error
}
