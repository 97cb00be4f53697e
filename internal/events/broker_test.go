// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package events

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/flytrap/internal/models"
)

func startBroker(t *testing.T, buffer int, heartbeat time.Duration) *Broker {
	t.Helper()

	b := NewBroker(buffer, heartbeat)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = b.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Broker did not stop within timeout")
		}
	})
	return b
}

func waitForEvent(t *testing.T, sub *Subscriber, kind string) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				t.Fatalf("Subscription closed while waiting for %q event", kind)
			}
			if event.Kind == kind {
				return event
			}
			// Skip heartbeats and other kinds
		case <-deadline:
			t.Fatalf("Timed out waiting for %q event", kind)
		}
	}
}

func TestPublishProfileReachesAllSubscribers(t *testing.T) {
	b := startBroker(t, 16, time.Hour)

	sub1 := b.Subscribe("sse")
	sub2 := b.Subscribe("websocket")

	profile := &models.SessionProfile{
		ID:           7,
		SessionToken: "tok-7",
		Device:       models.DeviceInfo{Type: models.DeviceAndroid},
	}
	b.PublishProfile(profile)

	for _, sub := range []*Subscriber{sub1, sub2} {
		event := waitForEvent(t, sub, KindProfile)

		var decoded models.SessionProfile
		if err := json.Unmarshal(event.Data, &decoded); err != nil {
			t.Fatalf("Failed to decode profile event: %v", err)
		}
		if decoded.ID != 7 || decoded.SessionToken != "tok-7" {
			t.Errorf("Unexpected profile event payload: %+v", decoded)
		}
	}
}

func TestPublishTelemetryPayload(t *testing.T) {
	b := startBroker(t, 16, time.Hour)
	sub := b.Subscribe("sse")

	level := 55.0
	b.PublishTelemetry("tok-9", &models.TelemetrySample{
		AudioLevel: &level,
		Grants:     models.Grants{Microphone: true},
		CapturedAt: time.Now(),
	})

	event := waitForEvent(t, sub, KindTelemetry)

	var decoded struct {
		SessionToken string                  `json:"sessionToken"`
		Telemetry    *models.TelemetrySample `json:"telemetry"`
	}
	if err := json.Unmarshal(event.Data, &decoded); err != nil {
		t.Fatalf("Failed to decode telemetry event: %v", err)
	}
	if decoded.SessionToken != "tok-9" {
		t.Errorf("Expected session token tok-9, got %q", decoded.SessionToken)
	}
	if decoded.Telemetry == nil || decoded.Telemetry.AudioLevel == nil || *decoded.Telemetry.AudioLevel != 55.0 {
		t.Errorf("Unexpected telemetry payload: %+v", decoded.Telemetry)
	}
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	b := startBroker(t, 16, time.Hour)

	early := b.Subscribe("sse")
	b.PublishProfile(&models.SessionProfile{ID: 1, SessionToken: "tok-1"})
	waitForEvent(t, early, KindProfile)

	late := b.Subscribe("sse")
	b.PublishProfile(&models.SessionProfile{ID: 2, SessionToken: "tok-2"})

	event := waitForEvent(t, late, KindProfile)
	var decoded models.SessionProfile
	if err := json.Unmarshal(event.Data, &decoded); err != nil {
		t.Fatalf("Failed to decode profile event: %v", err)
	}
	if decoded.ID != 2 {
		t.Errorf("Late subscriber should only see events after joining, got profile %d", decoded.ID)
	}
}

func TestSlowSubscriberIsEvicted(t *testing.T) {
	b := startBroker(t, 1, time.Hour)

	slow := b.Subscribe("sse")
	healthy := b.Subscribe("sse")

	// Fill the slow subscriber's buffer, then overflow it. The healthy
	// subscriber drains concurrently until shutdown closes its channel.
	go func() {
		for range healthy.Events() {
		}
	}()

	for i := range 5 {
		b.PublishProfile(&models.SessionProfile{ID: int64(i + 1), SessionToken: "tok"})
		time.Sleep(10 * time.Millisecond)
	}

	// The slow subscriber's channel must be closed by eviction
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-slow.Events():
			if !ok {
				goto evicted
			}
		case <-deadline:
			t.Fatal("Slow subscriber was not evicted")
		}
	}

evicted:
	if count := b.SubscriberCount(); count != 1 {
		t.Errorf("Expected 1 remaining subscriber, got %d", count)
	}
}

func TestHeartbeatDelivery(t *testing.T) {
	b := startBroker(t, 16, 50*time.Millisecond)
	sub := b.Subscribe("sse")

	event := waitForEvent(t, sub, KindPing)
	var ping struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(event.Data, &ping); err != nil {
		t.Fatalf("Failed to decode ping event: %v", err)
	}
	if ping.Timestamp == "" {
		t.Error("Expected heartbeat to carry a timestamp")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := startBroker(t, 16, time.Hour)
	sub := b.Subscribe("sse")

	b.Unsubscribe(sub)

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("Expected closed channel after unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Channel not closed after unsubscribe")
	}

	if count := b.SubscriberCount(); count != 0 {
		t.Errorf("Expected 0 subscribers, got %d", count)
	}
}

func TestShutdownClosesSubscribers(t *testing.T) {
	b := NewBroker(16, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = b.RunWithContext(ctx)
		close(done)
	}()

	sub := b.Subscribe("sse")
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broker did not stop on context cancellation")
	}

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("Expected subscriber channel closed at shutdown")
		}
	default:
		t.Error("Expected subscriber channel closed at shutdown")
	}
}

func TestLifecycleCallsReturnAfterShutdown(t *testing.T) {
	b := NewBroker(16, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = b.RunWithContext(ctx)
		close(done)
	}()

	sub := b.Subscribe("sse")
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broker did not stop on context cancellation")
	}

	// A transport tearing down after shutdown must not hang on unsubscribe;
	// that would stall the HTTP server's graceful shutdown.
	unsubDone := make(chan struct{})
	go func() {
		b.Unsubscribe(sub)
		close(unsubDone)
	}()
	select {
	case <-unsubDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Unsubscribe blocked after broker shutdown")
	}

	// A late subscriber gets a closed channel back instead of blocking.
	late := b.Subscribe("sse")
	select {
	case _, ok := <-late.Events():
		if ok {
			t.Error("Expected closed channel for post-shutdown subscriber")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe blocked after broker shutdown")
	}
}

func TestConnectedEventShape(t *testing.T) {
	t.Parallel()

	event := ConnectedEvent()
	if event.Kind != KindConnected {
		t.Errorf("Expected kind %q, got %q", KindConnected, event.Kind)
	}
	var payload struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		t.Fatalf("Failed to decode connected event: %v", err)
	}
	if payload.Timestamp == "" {
		t.Error("Expected connected marker to carry a timestamp")
	}
}
