// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

// Package registry provides the in-memory session store. It retains a
// bounded window of captured sessions, assigns monotonically increasing
// profile IDs, and holds the latest telemetry sample.
package registry

import (
	"sync"
	"time"

	"github.com/tomtom215/flytrap/internal/metrics"
	"github.com/tomtom215/flytrap/internal/models"
)

// Registry is the bounded in-memory session store.
//
// Profiles are immutable once recorded; telemetry lives in a single
// system-wide replace-only slot so concurrent readers never observe a
// partially updated profile. All methods are safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	nextID      int64
	sessions    []*models.SessionProfile // oldest first
	byToken     map[string]*models.SessionProfile
	telemetry   *models.TelemetrySample
	capacity    int
	recentLimit int
}

// New creates a registry retaining at most capacity sessions, reporting at
// most recentLimit sessions in stats.
func New(capacity, recentLimit int) *Registry {
	if capacity < 1 {
		capacity = 1
	}
	if recentLimit < 0 || recentLimit > capacity {
		recentLimit = capacity
	}
	return &Registry{
		sessions:    make([]*models.SessionProfile, 0, capacity),
		byToken:     make(map[string]*models.SessionProfile),
		capacity:    capacity,
		recentLimit: recentLimit,
	}
}

// Record stores a session profile, assigning its ID and creation time.
// When the ring is full the oldest session is evicted.
// The profile must not be mutated after Record returns.
func (r *Registry) Record(profile *models.SessionProfile) (int64, bool) {
	r.mu.Lock()

	r.nextID++
	profile.ID = r.nextID
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}

	evicted := false
	if len(r.sessions) >= r.capacity {
		oldest := r.sessions[0]
		r.sessions = r.sessions[1:]
		delete(r.byToken, oldest.SessionToken)
		evicted = true
	}

	r.sessions = append(r.sessions, profile)
	r.byToken[profile.SessionToken] = profile

	id := profile.ID
	size := len(r.sessions)
	r.mu.Unlock()

	metrics.RecordSessionRecorded(profile.Device.Type, evicted, size)
	return id, evicted
}

// SetTelemetry unconditionally replaces the telemetry slot. The new sample
// fully supersedes any previous one; there is no queue and no per-session
// history.
func (r *Registry) SetTelemetry(sample *models.TelemetrySample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.telemetry = sample
}

// Telemetry returns the latest telemetry sample, if any was ever submitted.
func (r *Registry) Telemetry() (*models.TelemetrySample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.telemetry, r.telemetry != nil
}

// Lookup returns the retained profile for the given session token.
func (r *Registry) Lookup(sessionToken string) (*models.SessionProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.byToken[sessionToken]
	return profile, ok
}

// Count returns the number of retained sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Stats returns an aggregate view over the retained window: total count,
// per-device-type breakdown, and the newest sessions (most recent first).
func (r *Registry) Stats() *models.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	breakdown := make(map[string]int)
	for _, s := range r.sessions {
		breakdown[s.Device.Type]++
	}

	n := r.recentLimit
	if n > len(r.sessions) {
		n = len(r.sessions)
	}
	recent := make([]*models.SessionProfile, 0, n)
	for i := len(r.sessions) - 1; i >= len(r.sessions)-n; i-- {
		recent = append(recent, r.sessions[i])
	}

	return &models.RegistryStats{
		Count:     len(r.sessions),
		Breakdown: breakdown,
		Recent:    recent,
	}
}

// Reset drops all retained sessions and telemetry. The ID sequence keeps
// counting so IDs stay unique across a reset.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = r.sessions[:0]
	r.byToken = make(map[string]*models.SessionProfile)
	r.telemetry = nil
	metrics.RegistrySize.Set(0)
}
