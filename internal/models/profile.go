// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package models

import (
	"time"
)

// Device type categories used for the registry breakdown counters.
// The profile builder maps every submission to exactly one of these.
const (
	DeviceAndroid = "Android"
	DeviceIPhone  = "iPhone"
	DeviceIPad    = "iPad"
	DeviceWindows = "Windows"
	DeviceMac     = "Mac"
	DeviceLinux   = "Linux"
	DeviceOther   = "Other"
)

// SessionProfile is one captured visitor flow: optional identity fields plus
// a normalized device/browser/network snapshot. Profiles are immutable after
// creation; the registry assigns the ID at record time and never mutates any
// other field afterwards.
type SessionProfile struct {
	ID           int64     `json:"id"`
	SessionToken string    `json:"sessionToken"`
	CreatedAt    time.Time `json:"createdAt"`

	Identity *Identity `json:"identity,omitempty"`

	Device       DeviceInfo   `json:"device"`
	Browser      BrowserInfo  `json:"browser"`
	Display      DisplayInfo  `json:"display"`
	Network      NetworkInfo  `json:"network"`
	Locale       LocaleInfo   `json:"locale"`
	Hardware     HardwareInfo `json:"hardware"`
	Capabilities Capabilities `json:"capabilities"`

	// GeoIP is resolved from the caller's network address, best-effort.
	// Absent for private/loopback addresses and lookup failures.
	GeoIP *GeoIPInfo `json:"geoIP,omitempty"`
}

// Identity holds the visitor-supplied identity fields. Every field is
// independently optional; an empty field means "not collected".
type Identity struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// DeviceInfo describes the visitor's device. Type is always one of the
// Device constants so the breakdown counters stay bounded.
type DeviceInfo struct {
	Type           string `json:"type"`
	Model          string `json:"model"`
	Platform       string `json:"platform"`
	UserAgent      string `json:"userAgent"`
	Vendor         string `json:"vendor"`
	TouchSupport   bool   `json:"touchSupport"`
	MaxTouchPoints int    `json:"maxTouchPoints"`
}

// BrowserInfo describes the visitor's browser.
type BrowserInfo struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Engine         string `json:"engine"`
	CookiesEnabled bool   `json:"cookiesEnabled"`
	DoNotTrack     bool   `json:"doNotTrack"`
}

// DisplayInfo describes the visitor's screen.
type DisplayInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AvailWidth  int     `json:"availWidth"`
	AvailHeight int     `json:"availHeight"`
	ColorDepth  int     `json:"colorDepth"`
	PixelRatio  float64 `json:"pixelRatio"`
	Orientation string  `json:"orientation"`
}

// NetworkInfo describes the visitor's connection. IPAddress is filled
// server-side from the request's remote address, never from the client.
type NetworkInfo struct {
	IPAddress      string  `json:"ipAddress"`
	ConnectionType string  `json:"connectionType"`
	DownlinkMbps   float64 `json:"downlinkMbps"`
	RTTMillis      int     `json:"rttMillis"`
	SaveData       bool    `json:"saveData"`
}

// LocaleInfo describes the visitor's language and timezone settings.
// Languages mirrors navigator.languages, most preferred first.
type LocaleInfo struct {
	Language              string   `json:"language"`
	Languages             []string `json:"languages"`
	Timezone              string   `json:"timezone"`
	TimezoneOffsetMinutes int      `json:"timezoneOffsetMinutes"`
}

// HardwareInfo describes the visitor's hardware as reported by the browser.
type HardwareInfo struct {
	CPUCores        int     `json:"cpuCores"`
	DeviceMemoryGB  float64 `json:"deviceMemoryGb"`
	BatteryLevel    float64 `json:"batteryLevel"`
	BatteryCharging bool    `json:"batteryCharging"`
	GPURenderer     string  `json:"gpuRenderer"`
}

// Capabilities describes browser feature support detected client-side.
type Capabilities struct {
	WebGL         bool `json:"webgl"`
	WebRTC        bool `json:"webrtc"`
	ServiceWorker bool `json:"serviceWorker"`
	LocalStorage  bool `json:"localStorage"`
	Notifications bool `json:"notifications"`
}

// GeoIPInfo is the result of a network-address geolocation lookup.
type GeoIPInfo struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode,omitempty"`
	Region      string  `json:"region,omitempty"`
	City        string  `json:"city,omitempty"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	ISP         string  `json:"isp,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
}

// HasIdentity reports whether any identity field was collected.
func (p *SessionProfile) HasIdentity() bool {
	return p.Identity != nil && (p.Identity.Name != "" || p.Identity.Phone != "" || p.Identity.Email != "")
}
