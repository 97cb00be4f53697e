// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package capture

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/flytrap/internal/config"
	"github.com/tomtom215/flytrap/internal/logging"
	"github.com/tomtom215/flytrap/internal/metrics"
	"github.com/tomtom215/flytrap/internal/models"
)

// State is the controller lifecycle phase.
type State string

const (
	// StateIdle means Start has not been called yet.
	StateIdle State = "idle"
	// StateAcquiring means device sources are being acquired.
	StateAcquiring State = "acquiring"
	// StateStreaming means the tick loop is running.
	StateStreaming State = "streaming"
	// StateStopped means Stop released the sources.
	StateStopped State = "stopped"
	// StateDenied is terminal: both camera and microphone access were
	// refused. A denied controller never transitions again. A single
	// granted modality is enough to stream.
	StateDenied State = "denied"
)

const acquireTimeout = 5 * time.Second

// Controller drives the capture loop. Start and Stop are idempotent; at
// most one acquisition and one ticker are ever active.
type Controller struct {
	provider  Provider
	submitter Submitter
	cfg       config.CaptureConfig

	mu     sync.Mutex
	state  State
	grants models.Grants

	frames   FrameSource
	audio    AudioLevelSource
	location LocationSource

	cancel   context.CancelFunc
	done     chan struct{}
	released bool

	// inFlight gates submissions: a tick whose predecessor is still
	// posting skips its own submission entirely.
	inFlight bool

	locMu       sync.Mutex
	cachedFix   *models.GeoPoint
	cachedFixAt time.Time
}

// NewController creates an idle controller.
func NewController(provider Provider, submitter Submitter, cfg config.CaptureConfig) *Controller {
	return &Controller{
		provider:  provider,
		submitter: submitter,
		cfg:       cfg,
		state:     StateIdle,
	}
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Grants reports which modalities acquisition obtained.
func (c *Controller) Grants() models.Grants {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grants
}

// Start acquires device sources and begins the tick loop. Calling Start
// while acquiring or streaming is a no-op; a denied or stopped controller
// stays where it is.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = StateAcquiring
	c.mu.Unlock()

	acquireCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()

	frames, err := c.provider.AcquireCamera(acquireCtx)
	if err != nil {
		logging.Warn().Err(err).Msg("Camera access denied")
		frames = nil
	}

	audio, err := c.provider.AcquireMicrophone(acquireCtx)
	if err != nil {
		logging.Warn().Err(err).Msg("Microphone access denied")
		audio = nil
	}

	// One granted modality is enough to stream; denied is reserved for a
	// total refusal.
	if frames == nil && audio == nil {
		c.deny()
		return nil
	}

	// Location is independent: refusal degrades the sample, never the
	// stream.
	location, err := c.provider.AcquireLocation(acquireCtx)
	if err != nil {
		logging.Debug().Err(err).Msg("Location access unavailable")
		location = nil
	}

	c.mu.Lock()
	if c.state != StateAcquiring {
		// Stop raced the acquisition.
		c.mu.Unlock()
		c.release()
		return nil
	}
	c.frames = frames
	c.audio = audio
	c.location = location
	c.grants = models.Grants{
		Camera:     frames != nil,
		Microphone: audio != nil,
		Location:   location != nil,
	}
	c.state = StateStreaming

	loopCtx, loopCancel := context.WithCancel(context.Background())
	c.cancel = loopCancel
	c.done = make(chan struct{})
	go c.run(loopCtx)
	c.mu.Unlock()

	logging.Info().
		Bool("camera", frames != nil).
		Bool("microphone", audio != nil).
		Bool("location", location != nil).
		Dur("tick", c.cfg.TickInterval).
		Msg("Capture streaming started")
	return nil
}

// Stop halts the loop and releases sources. Safe to call from any state
// and any number of times.
func (c *Controller) Stop() {
	c.mu.Lock()
	switch c.state {
	case StateStopped, StateDenied, StateIdle:
		if c.state == StateIdle {
			c.state = StateStopped
		}
		c.mu.Unlock()
		return
	case StateAcquiring:
		// The acquisition goroutine sees the state change and releases.
		c.state = StateStopped
		c.mu.Unlock()
		return
	}

	c.state = StateStopped
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	c.release()
	logging.Info().Msg("Capture stopped")
}

func (c *Controller) deny() {
	c.mu.Lock()
	if c.state == StateAcquiring {
		c.state = StateDenied
	}
	c.mu.Unlock()
	c.release()
}

// release frees the provider's sources exactly once, even when Stop races
// an in-flight acquisition.
func (c *Controller) release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	c.mu.Unlock()
	c.provider.Release()
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick samples the granted modalities and fires a submission unless one is
// already pending.
func (c *Controller) tick(ctx context.Context) {
	metrics.CaptureCycles.Inc()

	c.mu.Lock()
	if c.state != StateStreaming {
		c.mu.Unlock()
		return
	}
	if c.inFlight {
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	c.mu.Unlock()

	sample := c.sample(ctx)

	go func() {
		defer func() {
			c.mu.Lock()
			c.inFlight = false
			c.mu.Unlock()
		}()

		submitCtx, cancel := context.WithTimeout(ctx, c.cfg.SubmitTimeout)
		defer cancel()

		if err := c.submitter.Submit(submitCtx, sample); err != nil {
			metrics.RecordCaptureSubmission("error")
			logging.Warn().Err(err).Msg("Telemetry submission failed")
			return
		}
		metrics.RecordCaptureSubmission("ok")
	}()
}

func (c *Controller) sample(ctx context.Context) *models.TelemetrySample {
	sample := &models.TelemetrySample{
		Grants:     c.grants,
		CapturedAt: time.Now().UTC(),
	}

	if c.frames != nil {
		if frame, ready := c.frames.Next(); ready {
			sample.Frame = &frame
		}
	}

	if c.audio != nil {
		level := c.audio.Level()
		sample.AudioLevel = &level
	}

	if c.location != nil {
		sample.Location = c.currentLocation(ctx)
	}

	return sample
}

// currentLocation returns a fix no older than the cache TTL, refreshing
// from the source when stale. A refresh timeout falls back to the last
// cached fix rather than blocking the tick.
func (c *Controller) currentLocation(ctx context.Context) *models.GeoPoint {
	c.locMu.Lock()
	cached := c.cachedFix
	fresh := cached != nil && time.Since(c.cachedFixAt) < c.cfg.LocationCacheTTL
	c.locMu.Unlock()

	if fresh {
		return cached
	}

	fixCtx, cancel := context.WithTimeout(ctx, c.cfg.LocationTimeout)
	defer cancel()

	fix, err := c.location.Current(fixCtx)
	if err != nil {
		logging.Debug().Err(err).Msg("Location refresh failed, using cached fix")
		return cached
	}

	c.locMu.Lock()
	c.cachedFix = fix
	c.cachedFixAt = time.Now()
	c.locMu.Unlock()
	return fix
}
