// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package geoip

import (
	"context"
	"errors"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/flytrap/internal/config"
	"github.com/tomtom215/flytrap/internal/logging"
	"github.com/tomtom215/flytrap/internal/metrics"
	"github.com/tomtom215/flytrap/internal/models"
)

// Service resolves visitor IP addresses to geolocation data with a bounded
// deadline, an in-memory TTL cache, and circuit breaker protection around
// the upstream provider.
//
// Enrichment is best effort: every failure mode (timeout, rate limit, open
// circuit, provider error) returns nil rather than an error so session
// recording never blocks on geolocation.
type Service struct {
	provider Provider
	cb       *gobreaker.CircuitBreaker[*models.GeoIPInfo]
	timeout  time.Duration

	mu       sync.Mutex
	cache    map[string]cacheEntry
	cacheTTL time.Duration
	cacheMax int
}

type cacheEntry struct {
	geo     *models.GeoIPInfo
	expires time.Time
}

// NewService creates a geolocation service from configuration.
// Returns nil when enrichment is disabled; callers treat a nil service as
// "no enrichment".
func NewService(cfg config.GeoIPConfig) *Service {
	if !cfg.Enabled {
		return nil
	}

	cbName := "geoip"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[*models.GeoIPInfo](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,           // Allow 3 concurrent requests in half-open state
		Interval:    time.Minute, // Reset counts after 1 minute in closed state
		Timeout:     time.Minute, // Wait 1 minute before transitioning from open to half-open

		// Opens when failure rate >= 60% with minimum 10 requests
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] GeoIP state transition")
			metrics.RecordCircuitBreakerTransition(name, fromStr, toStr, stateToFloat(to))
		},
	})

	return &Service{
		provider: NewIPAPIProvider(cfg.Endpoint, cfg.Timeout, cfg.RatePerMin),
		cb:       cb,
		timeout:  cfg.Timeout,
		cache:    make(map[string]cacheEntry),
		cacheTTL: cfg.CacheTTL,
		cacheMax: cfg.CacheMaxSize,
	}
}

// Enrich resolves the given address to geolocation data, or nil when the
// lookup cannot complete within the service deadline. Private and loopback
// addresses resolve to a local placeholder without a provider call.
func (s *Service) Enrich(ctx context.Context, ipAddress string) *models.GeoIPInfo {
	if s == nil {
		return nil
	}

	ipAddress = NormalizeIPAddress(ipAddress)
	if ipAddress == "" {
		return nil
	}

	if IsPrivateIP(ipAddress) {
		metrics.RecordGeoIPLookup("private", 0)
		return LocalGeoIP()
	}

	if geo := s.cacheGet(ipAddress); geo != nil {
		metrics.RecordGeoIPLookup("hit", 0)
		return geo
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	geo, err := s.cb.Execute(func() (*models.GeoIPInfo, error) {
		return s.provider.Lookup(ctx, ipAddress)
	})
	elapsed := time.Since(start)

	if err != nil {
		s.recordFailure(ipAddress, err, elapsed)
		return nil
	}

	metrics.RecordGeoIPLookup("miss", elapsed)
	s.cachePut(ipAddress, geo)
	return geo
}

func (s *Service) recordFailure(ipAddress string, err error, elapsed time.Duration) {
	var result string
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "rejected"
	case errors.Is(err, ErrRateLimited):
		result = "rejected"
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	default:
		result = "error"
	}
	metrics.RecordGeoIPLookup(result, elapsed)
	logging.Debug().Err(err).Str("ip", ipAddress).Str("result", result).Msg("GeoIP lookup failed")
}

func (s *Service) cacheGet(ipAddress string) *models.GeoIPInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[ipAddress]
	if !ok {
		return nil
	}
	if time.Now().After(entry.expires) {
		delete(s.cache, ipAddress)
		metrics.GeoIPCacheSize.Set(float64(len(s.cache)))
		return nil
	}
	return entry.geo
}

func (s *Service) cachePut(ipAddress string, geo *models.GeoIPInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// At capacity, drop expired entries first; if none expired, drop one
	// arbitrary entry rather than growing without bound.
	if len(s.cache) >= s.cacheMax {
		now := time.Now()
		for ip, entry := range s.cache {
			if now.After(entry.expires) {
				delete(s.cache, ip)
			}
		}
		if len(s.cache) >= s.cacheMax {
			for ip := range s.cache {
				delete(s.cache, ip)
				break
			}
		}
	}

	s.cache[ipAddress] = cacheEntry{
		geo:     geo,
		expires: time.Now().Add(s.cacheTTL),
	}
	metrics.GeoIPCacheSize.Set(float64(len(s.cache)))
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
