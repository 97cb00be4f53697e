// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Session registry operations (records, evictions, occupancy)
// - Telemetry ingestion throughput
// - Notification broker fan-out
// - GeoIP lookup latency, cache efficiency, and circuit breaker state
// - API endpoint latency and throughput
// - Capture agent submission outcomes

var (
	// Registry Metrics
	SessionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flytrap_sessions_recorded_total",
			Help: "Total number of session profiles recorded",
		},
		[]string{"device_type"},
	)

	SessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flytrap_sessions_evicted_total",
			Help: "Total number of sessions evicted from the registry ring",
		},
	)

	RegistrySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flytrap_registry_sessions",
			Help: "Current number of retained sessions",
		},
	)

	// Telemetry Ingestion Metrics
	TelemetrySamplesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flytrap_telemetry_samples_ingested_total",
			Help: "Total number of telemetry samples accepted",
		},
	)

	TelemetrySamplesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flytrap_telemetry_samples_rejected_total",
			Help: "Total number of telemetry samples rejected",
		},
		[]string{"reason"}, // "validation", "body_too_large"
	)

	TelemetryFrameBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flytrap_telemetry_frame_bytes",
			Help:    "Size of ingested frame payloads in bytes",
			Buckets: []float64{1 << 10, 8 << 10, 32 << 10, 128 << 10, 512 << 10, 2 << 20, 8 << 20},
		},
	)

	// Broker Metrics
	BrokerSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flytrap_broker_subscribers",
			Help: "Current number of connected monitor subscribers",
		},
		[]string{"transport"}, // "sse", "websocket"
	)

	BrokerEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flytrap_broker_events_published_total",
			Help: "Total number of events published to the broker",
		},
		[]string{"kind"}, // "profile", "telemetry"
	)

	BrokerEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flytrap_broker_events_dropped_total",
			Help: "Total number of events dropped due to full subscriber buffers",
		},
	)

	BrokerSubscribersEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flytrap_broker_subscribers_evicted_total",
			Help: "Total number of subscribers evicted for not keeping up",
		},
	)

	// GeoIP Metrics
	GeoIPLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flytrap_geoip_lookups_total",
			Help: "Total number of GeoIP lookups",
		},
		[]string{"result"}, // "hit", "miss", "private", "error", "timeout", "rejected"
	)

	GeoIPLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flytrap_geoip_lookup_duration_seconds",
			Help:    "Duration of GeoIP API lookups in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	GeoIPCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flytrap_geoip_cache_entries",
			Help: "Current number of cached GeoIP results",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flytrap_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flytrap_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flytrap_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flytrap_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flytrap_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flytrap_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Capture Agent Metrics
	CaptureCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flytrap_capture_cycles_total",
			Help: "Total number of capture loop cycles executed",
		},
	)

	CaptureSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flytrap_capture_submissions_total",
			Help: "Total number of telemetry submissions by the capture agent",
		},
		[]string{"result"}, // "ok", "error", "skipped"
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flytrap_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flytrap_app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSessionRecorded records a successful profile record with its device type.
func RecordSessionRecorded(deviceType string, evicted bool, registrySize int) {
	SessionsRecorded.WithLabelValues(deviceType).Inc()
	if evicted {
		SessionsEvicted.Inc()
	}
	RegistrySize.Set(float64(registrySize))
}

// RecordTelemetryIngested records an accepted telemetry sample.
func RecordTelemetryIngested(frameBytes int) {
	TelemetrySamplesIngested.Inc()
	if frameBytes > 0 {
		TelemetryFrameBytes.Observe(float64(frameBytes))
	}
}

// RecordTelemetryRejected records a rejected telemetry sample with its reason.
func RecordTelemetryRejected(reason string) {
	TelemetrySamplesRejected.WithLabelValues(reason).Inc()
}

// RecordGeoIPLookup records a lookup outcome and its duration.
// Cache hits and private-address short circuits pass a zero duration.
func RecordGeoIPLookup(result string, duration time.Duration) {
	GeoIPLookups.WithLabelValues(result).Inc()
	if duration > 0 {
		GeoIPLookupDuration.Observe(duration.Seconds())
	}
}

// RecordCircuitBreakerTransition records a breaker state change and updates
// the state gauge.
func RecordCircuitBreakerTransition(name, from, to string, stateValue float64) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(stateValue)
}

// RecordCaptureSubmission records one capture agent submission outcome.
func RecordCaptureSubmission(result string) {
	CaptureSubmissions.WithLabelValues(result).Inc()
}

// SetAppInfo publishes version information and starts the uptime gauge.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	start := time.Now()
	go func() {
		for range time.Tick(15 * time.Second) {
			AppUptime.Set(time.Since(start).Seconds())
		}
	}()
}
