// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/flytrap/internal/config"
)

const ipAPISuccessBody = `{
	"status": "success",
	"country": "United States",
	"countryCode": "US",
	"regionName": "Pennsylvania",
	"city": "Philadelphia",
	"lat": 39.9526,
	"lon": -75.1652,
	"timezone": "America/New_York",
	"isp": "Example ISP",
	"query": "203.0.113.7"
}`

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc := NewService(config.GeoIPConfig{
		Enabled:      true,
		Endpoint:     srv.URL,
		Timeout:      2 * time.Second,
		CacheTTL:     time.Minute,
		RatePerMin:   1000,
		CacheMaxSize: 8,
	})
	if svc == nil {
		t.Fatal("Expected enabled service")
	}
	return svc, srv
}

func TestEnrichSuccess(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ipAPISuccessBody))
	})

	geo := svc.Enrich(context.Background(), "203.0.113.7")
	if geo == nil {
		t.Fatal("Expected geolocation result")
	}
	if geo.Country != "United States" || geo.City != "Philadelphia" {
		t.Errorf("Unexpected geolocation: %+v", geo)
	}
	if geo.Latitude != 39.9526 {
		t.Errorf("Expected latitude 39.9526, got %v", geo.Latitude)
	}
}

func TestEnrichCachesResults(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ipAPISuccessBody))
	})

	for range 3 {
		if geo := svc.Enrich(context.Background(), "203.0.113.7"); geo == nil {
			t.Fatal("Expected geolocation result")
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("Expected 1 upstream call, got %d", got)
	}
}

func TestEnrichPrivateIPShortCircuits(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Provider should not be called for private addresses")
	})

	geo := svc.Enrich(context.Background(), "192.168.1.50")
	if geo == nil {
		t.Fatal("Expected local placeholder")
	}
	if geo.Country != "Local" {
		t.Errorf("Expected Local country marker, got %q", geo.Country)
	}
}

func TestEnrichProviderFailureReturnsNil(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if geo := svc.Enrich(context.Background(), "203.0.113.7"); geo != nil {
		t.Errorf("Expected nil on provider failure, got %+v", geo)
	}
}

func TestEnrichFailStatusReturnsNil(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	})

	if geo := svc.Enrich(context.Background(), "203.0.113.7"); geo != nil {
		t.Errorf("Expected nil on fail status, got %+v", geo)
	}
}

func TestEnrichHonorsDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srvStarted := make(chan struct{}, 1)
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		srvStarted <- struct{}{}
		<-release
	})
	svc.timeout = 50 * time.Millisecond

	start := time.Now()
	geo := svc.Enrich(context.Background(), "203.0.113.7")
	elapsed := time.Since(start)
	close(release)

	if geo != nil {
		t.Errorf("Expected nil on timeout, got %+v", geo)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Lookup did not respect deadline, took %v", elapsed)
	}
	<-srvStarted
}

func TestNilServiceEnrich(t *testing.T) {
	t.Parallel()

	var svc *Service
	if geo := svc.Enrich(context.Background(), "203.0.113.7"); geo != nil {
		t.Error("Expected nil from disabled service")
	}
}

func TestNewServiceDisabled(t *testing.T) {
	t.Parallel()

	if svc := NewService(config.GeoIPConfig{Enabled: false}); svc != nil {
		t.Error("Expected nil service when disabled")
	}
}

func TestIsPrivateIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.0.0.1", true},
		{"172.16.5.4", true},
		{"192.168.1.1", true},
		{"127.0.0.1", true},
		{"169.254.0.5", true},
		{"::1", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"203.0.113.7", false},
		{"2001:4860:4860::8888", false},
		{"not-an-ip", false},
	}

	for _, tt := range tests {
		if got := IsPrivateIP(tt.ip); got != tt.want {
			t.Errorf("IsPrivateIP(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestNormalizeIPAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"192.0.2.1:54321", "192.0.2.1"},
		{"192.0.2.1", "192.0.2.1"},
		{"[::1]:8080", "::1"},
		{"[2001:db8::1]", "2001:db8::1"},
		{"2001:db8::1", "2001:db8::1"},
	}

	for _, tt := range tests {
		if got := NormalizeIPAddress(tt.in); got != tt.want {
			t.Errorf("NormalizeIPAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCacheEvictionAtCapacity(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ipAPISuccessBody))
	})
	svc.cacheMax = 2

	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		if geo := svc.Enrich(context.Background(), ip); geo == nil {
			t.Fatalf("Expected result for %s", ip)
		}
	}

	svc.mu.Lock()
	size := len(svc.cache)
	svc.mu.Unlock()
	if size > 2 {
		t.Errorf("Expected cache bounded at 2 entries, got %d", size)
	}
}
