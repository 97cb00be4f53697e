// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/flytrap/internal/config"
	"github.com/tomtom215/flytrap/internal/models"
)

type fakeFrames struct {
	frame string
	ready atomic.Bool
}

func (f *fakeFrames) Next() (string, bool) {
	return f.frame, f.ready.Load()
}

type fakeAudio struct {
	level float64
}

func (f *fakeAudio) Level() float64 { return f.level }

type fakeLocation struct {
	fix   *models.GeoPoint
	err   error
	block bool
	calls atomic.Int64
}

func (f *fakeLocation) Current(ctx context.Context) (*models.GeoPoint, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.fix, f.err
}

type fakeProvider struct {
	cameraErr   error
	micErr      error
	locationErr error

	frames   *fakeFrames
	audio    *fakeAudio
	location *fakeLocation

	releases atomic.Int64
}

func (p *fakeProvider) AcquireCamera(ctx context.Context) (FrameSource, error) {
	if p.cameraErr != nil {
		return nil, p.cameraErr
	}
	return p.frames, nil
}

func (p *fakeProvider) AcquireMicrophone(ctx context.Context) (AudioLevelSource, error) {
	if p.micErr != nil {
		return nil, p.micErr
	}
	return p.audio, nil
}

func (p *fakeProvider) AcquireLocation(ctx context.Context) (LocationSource, error) {
	if p.locationErr != nil {
		return nil, p.locationErr
	}
	return p.location, nil
}

func (p *fakeProvider) Release() { p.releases.Add(1) }

type fakeSubmitter struct {
	mu      sync.Mutex
	samples []*models.TelemetrySample
	err     error
	delay   time.Duration
}

func (s *fakeSubmitter) Submit(ctx context.Context, sample *models.TelemetrySample) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.samples = append(s.samples, sample)
	s.mu.Unlock()
	return s.err
}

func (s *fakeSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

func (s *fakeSubmitter) last() *models.TelemetrySample {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) == 0 {
		return nil
	}
	return s.samples[len(s.samples)-1]
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		frames:   &fakeFrames{frame: "data:image/jpeg;base64,/9j/4AAQSkZJRg=="},
		audio:    &fakeAudio{level: 33},
		location: &fakeLocation{fix: &models.GeoPoint{Latitude: 39.95, Longitude: -75.16}},
	}
}

func testConfig() config.CaptureConfig {
	return config.CaptureConfig{
		TickInterval:     10 * time.Millisecond,
		LocationCacheTTL: 30 * time.Second,
		LocationTimeout:  100 * time.Millisecond,
		SubmitTimeout:    time.Second,
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestStartStreamsSamples(t *testing.T) {
	provider := newFakeProvider()
	provider.frames.ready.Store(true)
	submitter := &fakeSubmitter{}
	ctrl := NewController(provider, submitter, testConfig())
	defer ctrl.Stop()

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := ctrl.State(); got != StateStreaming {
		t.Fatalf("state = %q, want streaming", got)
	}

	waitFor(t, func() bool { return submitter.count() >= 2 }, "no samples submitted")

	sample := submitter.last()
	if sample.Frame == nil {
		t.Error("frame missing from sample")
	}
	if sample.AudioLevel == nil || *sample.AudioLevel != 33 {
		t.Error("audio level missing from sample")
	}
	if sample.Location == nil || sample.Location.Latitude != 39.95 {
		t.Error("location missing from sample")
	}
	if !sample.Grants.Camera || !sample.Grants.Microphone || !sample.Grants.Location {
		t.Errorf("grants = %+v, want all true", sample.Grants)
	}
}

func TestFrameSkippedWhenNotReady(t *testing.T) {
	provider := newFakeProvider()
	submitter := &fakeSubmitter{}
	ctrl := NewController(provider, submitter, testConfig())
	defer ctrl.Stop()

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return submitter.count() >= 1 }, "no samples submitted")

	if sample := submitter.last(); sample.Frame != nil {
		t.Error("frame should be absent when the source is not ready")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	provider := newFakeProvider()
	submitter := &fakeSubmitter{}
	ctrl := NewController(provider, submitter, testConfig())
	defer ctrl.Stop()

	for i := 0; i < 3; i++ {
		if err := ctrl.Start(context.Background()); err != nil {
			t.Fatalf("Start #%d: %v", i+1, err)
		}
	}
	if got := ctrl.State(); got != StateStreaming {
		t.Fatalf("state = %q, want streaming", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	provider := newFakeProvider()
	submitter := &fakeSubmitter{}
	ctrl := NewController(provider, submitter, testConfig())

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctrl.Stop()
	ctrl.Stop()

	if got := ctrl.State(); got != StateStopped {
		t.Fatalf("state = %q, want stopped", got)
	}
	if got := provider.releases.Load(); got != 1 {
		t.Errorf("releases = %d, want exactly 1", got)
	}

	// A stopped controller stays stopped.
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start after Stop: %v", err)
	}
	if got := ctrl.State(); got != StateStopped {
		t.Errorf("state = %q, want stopped after restart attempt", got)
	}
}

func TestCameraDenialStreamsMicrophoneOnly(t *testing.T) {
	provider := newFakeProvider()
	provider.cameraErr = errors.New("permission denied")
	provider.frames.ready.Store(true)
	submitter := &fakeSubmitter{}
	ctrl := NewController(provider, submitter, testConfig())
	defer ctrl.Stop()

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := ctrl.State(); got != StateStreaming {
		t.Fatalf("state = %q, want streaming on microphone alone", got)
	}

	waitFor(t, func() bool { return submitter.count() >= 1 }, "no samples submitted")

	sample := submitter.last()
	if sample.Grants.Camera {
		t.Error("camera grant should be false")
	}
	if !sample.Grants.Microphone {
		t.Error("microphone grant should be true")
	}
	if sample.Frame != nil {
		t.Error("frame should be absent without a camera grant")
	}
	if sample.AudioLevel == nil {
		t.Error("audio level should still be sampled")
	}
}

func TestMicrophoneDenialStreamsCameraOnly(t *testing.T) {
	provider := newFakeProvider()
	provider.micErr = errors.New("permission denied")
	provider.frames.ready.Store(true)
	submitter := &fakeSubmitter{}
	ctrl := NewController(provider, submitter, testConfig())
	defer ctrl.Stop()

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := ctrl.State(); got != StateStreaming {
		t.Fatalf("state = %q, want streaming on camera alone", got)
	}

	waitFor(t, func() bool { return submitter.count() >= 1 }, "no samples submitted")

	sample := submitter.last()
	if !sample.Grants.Camera || sample.Grants.Microphone {
		t.Errorf("grants = %+v, want camera only", sample.Grants)
	}
	if sample.Frame == nil {
		t.Error("frame should still be sampled")
	}
	if sample.AudioLevel != nil {
		t.Error("audio level should be absent without a microphone grant")
	}
}

func TestAllModalitiesDeniedIsTerminal(t *testing.T) {
	provider := newFakeProvider()
	provider.cameraErr = errors.New("permission denied")
	provider.micErr = errors.New("permission denied")
	ctrl := NewController(provider, &fakeSubmitter{}, testConfig())

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := ctrl.State(); got != StateDenied {
		t.Fatalf("state = %q, want denied when nothing was granted", got)
	}
	if provider.releases.Load() == 0 {
		t.Error("sources not released after denial")
	}

	// Denied is terminal: Start and Stop both leave it alone.
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start after denial: %v", err)
	}
	ctrl.Stop()
	if got := ctrl.State(); got != StateDenied {
		t.Errorf("state = %q, want denied to stay terminal", got)
	}
}

func TestLocationDenialDoesNotGateStreaming(t *testing.T) {
	provider := newFakeProvider()
	provider.locationErr = errors.New("permission denied")
	submitter := &fakeSubmitter{}
	ctrl := NewController(provider, submitter, testConfig())
	defer ctrl.Stop()

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := ctrl.State(); got != StateStreaming {
		t.Fatalf("state = %q, want streaming without location", got)
	}

	waitFor(t, func() bool { return submitter.count() >= 1 }, "no samples submitted")

	sample := submitter.last()
	if sample.Location != nil {
		t.Error("location should be absent")
	}
	if sample.Grants.Location {
		t.Error("location grant should be false")
	}
	if !sample.Grants.Camera || !sample.Grants.Microphone {
		t.Error("camera and microphone grants should survive")
	}
}

func TestAtMostOneSubmissionInFlight(t *testing.T) {
	provider := newFakeProvider()
	submitter := &fakeSubmitter{delay: 200 * time.Millisecond}
	ctrl := NewController(provider, submitter, testConfig())
	defer ctrl.Stop()

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Many ticks elapse during one slow submission; all but the first
	// must skip.
	time.Sleep(150 * time.Millisecond)
	if got := submitter.count(); got > 1 {
		t.Errorf("submissions = %d, want at most 1 while the first is pending", got)
	}
}

func TestSubmissionFailureKeepsStreaming(t *testing.T) {
	provider := newFakeProvider()
	submitter := &fakeSubmitter{err: errors.New("server unreachable")}
	ctrl := NewController(provider, submitter, testConfig())
	defer ctrl.Stop()

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool { return submitter.count() >= 3 }, "loop stopped after failures")
	if got := ctrl.State(); got != StateStreaming {
		t.Errorf("state = %q, want streaming despite failures", got)
	}
}

func TestLocationCacheAvoidsRepeatedFixes(t *testing.T) {
	provider := newFakeProvider()
	submitter := &fakeSubmitter{}
	ctrl := NewController(provider, submitter, testConfig())
	defer ctrl.Stop()

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool { return submitter.count() >= 5 }, "not enough samples")
	if calls := provider.location.calls.Load(); calls != 1 {
		t.Errorf("location source calls = %d, want 1 within cache TTL", calls)
	}
}

func TestLocationTimeoutFallsBackToCachedFix(t *testing.T) {
	provider := newFakeProvider()
	submitter := &fakeSubmitter{}
	cfg := testConfig()
	cfg.LocationCacheTTL = 20 * time.Millisecond
	cfg.LocationTimeout = 30 * time.Millisecond
	ctrl := NewController(provider, submitter, cfg)
	defer ctrl.Stop()

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return submitter.count() >= 1 }, "no samples submitted")

	// Make refreshes hang; the next stale-cache tick must fall back to
	// the cached fix instead of dropping location.
	provider.location.block = true
	before := submitter.count()
	waitFor(t, func() bool { return submitter.count() >= before+3 }, "loop stalled on location refresh")

	if sample := submitter.last(); sample.Location == nil || sample.Location.Latitude != 39.95 {
		t.Error("cached fix not used after refresh timeout")
	}
}
