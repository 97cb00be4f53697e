// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

// Package profile assembles complete session profiles from capture
// submissions. Submissions arrive in two shapes: extended payloads carrying
// full device descriptors from the capture page, and degraded payloads
// carrying only identity and a user agent string. Both converge on one
// default-fill path so every recorded profile is fully populated.
package profile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/flytrap/internal/models"
)

// Submission is the accepted input shape for session submission. All
// descriptor blocks are optional; missing blocks are filled with defaults
// derived from the user agent.
type Submission struct {
	Name  string `json:"name" validate:"omitempty,max=256"`
	Phone string `json:"phone" validate:"omitempty,max=64"`
	Email string `json:"email" validate:"omitempty,max=256"`

	UserAgent string `json:"userAgent" validate:"omitempty,max=2048"`

	Device       *models.DeviceInfo   `json:"device,omitempty"`
	Browser      *models.BrowserInfo  `json:"browser,omitempty"`
	Display      *models.DisplayInfo  `json:"display,omitempty"`
	Network      *models.NetworkInfo  `json:"network,omitempty"`
	Locale       *models.LocaleInfo   `json:"locale,omitempty"`
	Hardware     *models.HardwareInfo `json:"hardware,omitempty"`
	Capabilities *models.Capabilities `json:"capabilities,omitempty"`
}

// Enricher resolves an IP address to geolocation data, or nil when
// enrichment is unavailable.
type Enricher interface {
	Enrich(ctx context.Context, ipAddress string) *models.GeoIPInfo
}

// Builder assembles session profiles from submissions.
type Builder struct {
	enricher Enricher
}

// NewBuilder creates a builder. A nil enricher disables geolocation.
func NewBuilder(enricher Enricher) *Builder {
	return &Builder{enricher: enricher}
}

// Build assembles a fully populated profile from a submission. The remote
// address fills the network block when the client did not report one, and
// feeds geolocation enrichment. The registry assigns the profile ID later;
// Build assigns the session token.
func (b *Builder) Build(ctx context.Context, sub *Submission, remoteAddr string) *models.SessionProfile {
	p := &models.SessionProfile{
		SessionToken: uuid.New().String(),
		CreatedAt:    time.Now().UTC(),
	}

	if sub.Name != "" || sub.Phone != "" || sub.Email != "" {
		p.Identity = &models.Identity{
			Name:  sub.Name,
			Phone: sub.Phone,
			Email: sub.Email,
		}
	}

	userAgent := sub.UserAgent
	if userAgent == "" && sub.Device != nil {
		userAgent = sub.Device.UserAgent
	}

	p.Device = buildDevice(sub.Device, userAgent)
	p.Browser = buildBrowser(sub.Browser, userAgent)
	p.Display = buildDisplay(sub.Display)
	p.Network = buildNetwork(sub.Network, remoteAddr)
	p.Locale = buildLocale(sub.Locale)
	p.Hardware = buildHardware(sub.Hardware)
	if sub.Capabilities != nil {
		p.Capabilities = *sub.Capabilities
	}

	if b.enricher != nil {
		p.GeoIP = b.enricher.Enrich(ctx, p.Network.IPAddress)
	}

	return p
}

func buildDevice(device *models.DeviceInfo, userAgent string) models.DeviceInfo {
	d := models.DeviceInfo{}
	if device != nil {
		d = *device
	}
	if d.UserAgent == "" {
		d.UserAgent = userAgent
	}
	if d.Type == "" {
		d.Type = DetectDeviceType(d.UserAgent)
	}
	if d.Platform == "" {
		d.Platform = DetectPlatform(d.UserAgent)
	}
	if d.Model == "" {
		d.Model = "Unknown"
	}
	return d
}

func buildBrowser(browser *models.BrowserInfo, userAgent string) models.BrowserInfo {
	if browser != nil && browser.Name != "" {
		return *browser
	}
	return DetectBrowser(userAgent)
}

func buildDisplay(display *models.DisplayInfo) models.DisplayInfo {
	if display != nil && display.Width > 0 {
		return *display
	}
	// Degraded submissions still report a plausible desktop display
	return models.DisplayInfo{
		Width:       1920,
		Height:      1080,
		AvailWidth:  1920,
		AvailHeight: 1040,
		ColorDepth:  24,
		PixelRatio:  1.0,
		Orientation: "landscape-primary",
	}
}

func buildNetwork(network *models.NetworkInfo, remoteAddr string) models.NetworkInfo {
	n := models.NetworkInfo{}
	if network != nil {
		n = *network
	}
	if n.IPAddress == "" {
		n.IPAddress = remoteAddr
	}
	if n.ConnectionType == "" {
		n.ConnectionType = "unknown"
	}
	return n
}

func buildLocale(locale *models.LocaleInfo) models.LocaleInfo {
	if locale != nil && locale.Language != "" {
		return *locale
	}
	return models.LocaleInfo{
		Language:  "en-US",
		Languages: []string{"en-US", "en"},
		Timezone:  "UTC",
	}
}

func buildHardware(hardware *models.HardwareInfo) models.HardwareInfo {
	if hardware != nil && hardware.CPUCores > 0 {
		return *hardware
	}
	return models.HardwareInfo{
		CPUCores:       4,
		DeviceMemoryGB: 8,
	}
}
