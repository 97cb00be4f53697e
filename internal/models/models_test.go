// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func createTestProfile() *SessionProfile {
	return &SessionProfile{
		ID:           42,
		SessionToken: "f3a9c1d0-0000-4000-8000-000000000042",
		CreatedAt:    time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Identity: &Identity{
			Name:  "Alice",
			Phone: "+1-555-0142",
		},
		Device: DeviceInfo{
			Type:      DeviceAndroid,
			Model:     "Pixel 9",
			Platform:  "Linux armv8l",
			UserAgent: "Mozilla/5.0 (Linux; Android 15; Pixel 9)",
		},
		Browser: BrowserInfo{
			Name:    "Chrome",
			Version: "139.0",
		},
		Display: DisplayInfo{
			Width:      412,
			Height:     915,
			ColorDepth: 24,
			PixelRatio: 2.625,
		},
		Network: NetworkInfo{
			IPAddress:      "203.0.113.7",
			ConnectionType: "4g",
		},
		Locale: LocaleInfo{
			Language: "en-US",
			Timezone: "America/New_York",
		},
		GeoIP: &GeoIPInfo{
			Country:     "United States",
			CountryCode: "US",
			City:        "Philadelphia",
			Latitude:    39.9526,
			Longitude:   -75.1652,
		},
	}
}

func TestSessionProfileJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(createTestProfile())
	if err != nil {
		t.Fatalf("Failed to marshal SessionProfile: %v", err)
	}

	var decoded SessionProfile
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal SessionProfile: %v", err)
	}

	if decoded.ID != 42 {
		t.Errorf("Expected ID 42, got %d", decoded.ID)
	}
	if decoded.Identity == nil || decoded.Identity.Name != "Alice" {
		t.Error("Identity not properly round-tripped")
	}
	if decoded.Device.Type != DeviceAndroid {
		t.Errorf("Expected device type %q, got %q", DeviceAndroid, decoded.Device.Type)
	}
	if decoded.GeoIP == nil || decoded.GeoIP.Latitude != 39.9526 {
		t.Error("GeoIP not properly round-tripped")
	}
}

func TestSessionProfileFieldNames(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(createTestProfile())
	if err != nil {
		t.Fatalf("Failed to marshal SessionProfile: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to unmarshal into map: %v", err)
	}

	// Clients depend on camelCase keys.
	for _, key := range []string{"id", "sessionToken", "createdAt", "device", "browser", "display", "network", "locale"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Expected top-level key %q in serialized profile", key)
		}
	}

	geo, ok := raw["geoip"].(map[string]any)
	if !ok {
		t.Fatal("Expected geoip object in serialized profile")
	}
	if _, ok := geo["lat"]; !ok {
		t.Error("Expected geoip latitude under key \"lat\"")
	}
}

func TestHasIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		identity *Identity
		want     bool
	}{
		{"nil identity", nil, false},
		{"empty identity", &Identity{}, false},
		{"name only", &Identity{Name: "Alice"}, true},
		{"phone only", &Identity{Phone: "+1-555-0142"}, true},
		{"email only", &Identity{Email: "alice@example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &SessionProfile{Identity: tt.identity}
			if got := p.HasIdentity(); got != tt.want {
				t.Errorf("HasIdentity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTelemetrySampleOmitsEmptyModalities(t *testing.T) {
	t.Parallel()

	sample := TelemetrySample{
		Grants:     Grants{Microphone: true},
		CapturedAt: time.Now(),
	}

	data, err := json.Marshal(sample)
	if err != nil {
		t.Fatalf("Failed to marshal TelemetrySample: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to unmarshal into map: %v", err)
	}

	for _, key := range []string{"frame", "audioLevel", "location"} {
		if _, ok := raw[key]; ok {
			t.Errorf("Expected key %q to be omitted when unset", key)
		}
	}
	if _, ok := raw["grants"]; !ok {
		t.Error("Expected grants to always be present")
	}
}

func TestGrantsAny(t *testing.T) {
	t.Parallel()

	if (Grants{}).Any() {
		t.Error("Expected empty grants to report Any() == false")
	}
	if !(Grants{Location: true}).Any() {
		t.Error("Expected location grant to report Any() == true")
	}
}

func TestSubmissionResponseOmitsErrorOnSuccess(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(SubmissionResponse{
		Success:      true,
		ProfileID:    7,
		SessionToken: "tok",
	})
	if err != nil {
		t.Fatalf("Failed to marshal SubmissionResponse: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to unmarshal into map: %v", err)
	}
	if _, ok := raw["error"]; ok {
		t.Error("Expected error key to be omitted on success")
	}
	if _, ok := raw["profileId"]; !ok {
		t.Error("Expected profileId key in successful response")
	}
}
