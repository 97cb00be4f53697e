// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/tomtom215/flytrap/internal/models"
)

// SimulatedOptions configures the simulated device provider.
type SimulatedOptions struct {
	// FramePath points to an image file replayed as every frame. Empty
	// means the camera produces no frames (grants still succeed).
	FramePath string

	// Latitude and Longitude are the static position fix. Both zero
	// means location access is refused.
	Latitude  float64
	Longitude float64

	// DenyCamera and DenyMicrophone force acquisition failures.
	DenyCamera     bool
	DenyMicrophone bool
}

// SimulatedProvider stands in for real device access. The agent binary uses
// it to exercise a Flytrap server end to end: a file-backed camera, a
// random-walk microphone level, and a fixed position fix.
type SimulatedProvider struct {
	opts SimulatedOptions
}

// NewSimulatedProvider creates a provider from options.
func NewSimulatedProvider(opts SimulatedOptions) *SimulatedProvider {
	return &SimulatedProvider{opts: opts}
}

// AcquireCamera implements Provider.
func (p *SimulatedProvider) AcquireCamera(ctx context.Context) (FrameSource, error) {
	if p.opts.DenyCamera {
		return nil, fmt.Errorf("camera access denied")
	}
	if p.opts.FramePath == "" {
		return &fileFrameSource{}, nil
	}

	data, err := os.ReadFile(p.opts.FramePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame file: %w", err)
	}
	frame := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
	return &fileFrameSource{frame: frame}, nil
}

// AcquireMicrophone implements Provider.
func (p *SimulatedProvider) AcquireMicrophone(ctx context.Context) (AudioLevelSource, error) {
	if p.opts.DenyMicrophone {
		return nil, fmt.Errorf("microphone access denied")
	}
	return &randomWalkAudio{level: 30}, nil
}

// AcquireLocation implements Provider.
func (p *SimulatedProvider) AcquireLocation(ctx context.Context) (LocationSource, error) {
	if p.opts.Latitude == 0 && p.opts.Longitude == 0 {
		return nil, fmt.Errorf("location access denied")
	}
	return &staticLocation{fix: &models.GeoPoint{
		Latitude:       p.opts.Latitude,
		Longitude:      p.opts.Longitude,
		AccuracyMeters: 15,
	}}, nil
}

// Release implements Provider. Simulated sources hold no OS resources.
func (p *SimulatedProvider) Release() {}

type fileFrameSource struct {
	frame string
}

func (f *fileFrameSource) Next() (string, bool) {
	return f.frame, f.frame != ""
}

// randomWalkAudio wanders within [0,100] so dashboards show movement.
type randomWalkAudio struct {
	mu    sync.Mutex
	level float64
}

func (a *randomWalkAudio) Level() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.level += (rand.Float64() - 0.5) * 10
	if a.level < 0 {
		a.level = 0
	}
	if a.level > 100 {
		a.level = 100
	}
	return a.level
}

type staticLocation struct {
	fix *models.GeoPoint
}

func (s *staticLocation) Current(ctx context.Context) (*models.GeoPoint, error) {
	return s.fix, nil
}
