// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

// Package events provides the notification broker that fans captured
// sessions and telemetry out to connected monitors. The broker is
// transport-neutral: Server-Sent Events and WebSocket subscribers consume
// the same serialized event stream.
package events

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/flytrap/internal/logging"
	"github.com/tomtom215/flytrap/internal/metrics"
	"github.com/tomtom215/flytrap/internal/models"
)

// Event kinds delivered to monitor subscribers.
const (
	KindConnected = "connected"
	KindProfile   = "profile"
	KindTelemetry = "telemetry"
	KindPing      = "ping"
)

// Event is one serialized notification. Data is marshaled exactly once at
// publish time and shared by every subscriber.
type Event struct {
	Kind string
	Data []byte
}

// telemetryEvent is the wire shape for telemetry notifications.
type telemetryEvent struct {
	SessionToken string                  `json:"sessionToken"`
	Telemetry    *models.TelemetrySample `json:"telemetry"`
}

// pingEvent is the wire shape for heartbeat notifications.
type pingEvent struct {
	Timestamp string `json:"timestamp"`
}

// subscriberIDCounter generates unique, monotonically increasing IDs for
// subscribers so fan-out iterates in a consistent order.
var subscriberIDCounter atomic.Uint64

// Subscriber is one connected monitor. Events arrive on a buffered channel;
// a subscriber that stops draining is evicted rather than blocking the
// publish path.
type Subscriber struct {
	id        uint64
	transport string
	send      chan Event
}

// NewSubscriber creates a subscriber for the given transport ("sse" or
// "websocket") with the given outbound buffer depth.
func NewSubscriber(transport string, buffer int) *Subscriber {
	return &Subscriber{
		id:        subscriberIDCounter.Add(1),
		transport: transport,
		send:      make(chan Event, buffer),
	}
}

// Events returns the subscriber's receive channel. The channel is closed
// when the subscriber is evicted or the broker shuts down.
func (s *Subscriber) Events() <-chan Event {
	return s.send
}

// Transport returns the subscriber's transport label.
func (s *Subscriber) Transport() string {
	return s.transport
}

// Broker maintains the set of active subscribers and fans published events
// out to all of them. Events published before a subscriber registers are
// never replayed.
type Broker struct {
	subscribers map[*Subscriber]bool
	publish     chan Event
	Register    chan *Subscriber
	Unregister  chan *Subscriber
	heartbeat   time.Duration
	buffer      int
	done        chan struct{}
	mu          sync.RWMutex
}

// NewBroker creates a broker with the given subscriber buffer depth and
// heartbeat interval.
func NewBroker(buffer int, heartbeat time.Duration) *Broker {
	return &Broker{
		subscribers: make(map[*Subscriber]bool),
		publish:     make(chan Event, 256),
		Register:    make(chan *Subscriber),
		Unregister:  make(chan *Subscriber),
		heartbeat:   heartbeat,
		buffer:      buffer,
		done:        make(chan struct{}),
	}
}

// Subscribe creates a subscriber and registers it with the running broker.
// After shutdown the subscriber is returned with its channel already closed,
// so transports attaching during teardown drain immediately instead of
// hanging on a loop that no longer runs.
func (b *Broker) Subscribe(transport string) *Subscriber {
	sub := NewSubscriber(transport, b.buffer)
	select {
	case b.Register <- sub:
	case <-b.done:
		close(sub.send)
	}
	return sub
}

// Unsubscribe removes a subscriber from the running broker. Safe to call
// for a subscriber the broker already evicted, and returns immediately
// after the broker has shut down.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	select {
	case b.Unregister <- sub:
	case <-b.done:
	}
}

// RunWithContext starts the broker loop with context support for graceful
// shutdown. Designed for use with suture supervision.
//
// Uses priority-based selection for predictable behavior:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Subscriber lifecycle events (Register/Unregister)
// - Priority 3: Published events and heartbeat ticks
// This ensures subscriber state is always consistent before fan-out.
func (b *Broker) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		// Priority 1: Check for shutdown (highest priority, non-blocking)
		select {
		case <-ctx.Done():
			b.shutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle subscriber lifecycle events (non-blocking check)
		select {
		case sub := <-b.Register:
			b.addSubscriber(sub)
			continue
		case sub := <-b.Unregister:
			b.removeSubscriber(sub)
			continue
		default:
			// No lifecycle events pending
		}

		// Priority 3: Handle published events or wait for any event (blocking)
		select {
		case <-ctx.Done():
			b.shutdown(ctx)
			return ctx.Err()

		case sub := <-b.Register:
			b.addSubscriber(sub)

		case sub := <-b.Unregister:
			b.removeSubscriber(sub)

		case event := <-b.publish:
			b.fanOut(event)

		case <-ticker.C:
			b.fanOut(makePingEvent())
		}
	}
}

func (b *Broker) addSubscriber(sub *Subscriber) {
	b.mu.Lock()
	b.subscribers[sub] = true
	total := len(b.subscribers)
	b.mu.Unlock()

	metrics.BrokerSubscribers.WithLabelValues(sub.transport).Inc()
	logging.Info().Str("transport", sub.transport).Int("total_subscribers", total).Msg("monitor subscribed")
}

func (b *Broker) removeSubscriber(sub *Subscriber) {
	b.mu.Lock()
	_, ok := b.subscribers[sub]
	if ok {
		delete(b.subscribers, sub)
		close(sub.send)
	}
	total := len(b.subscribers)
	b.mu.Unlock()

	if ok {
		metrics.BrokerSubscribers.WithLabelValues(sub.transport).Dec()
		logging.Info().Str("transport", sub.transport).Int("total_subscribers", total).Msg("monitor unsubscribed")
	}
}

// fanOut sends an event to all subscribers in a deterministic order.
// Subscribers are sorted by ID so delivery order is reproducible within a
// single process run.
func (b *Broker) fanOut(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := make([]*Subscriber, 0, len(b.subscribers))
	for sub := range b.subscribers {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].id < subs[j].id
	})

	// Track subscribers to evict (can't modify map during iteration)
	var toEvict []*Subscriber

	for _, sub := range subs {
		select {
		case sub.send <- event:
		default:
			// Buffer full, subscriber is not keeping up
			toEvict = append(toEvict, sub)
		}
	}

	for _, sub := range toEvict {
		close(sub.send)
		delete(b.subscribers, sub)
		metrics.BrokerSubscribers.WithLabelValues(sub.transport).Dec()
		metrics.BrokerSubscribersEvicted.Inc()
		metrics.BrokerEventsDropped.Inc()
		logging.Warn().Str("transport", sub.transport).Msg("evicting slow monitor subscriber")
	}
}

// shutdown closes all subscriber channels so their transports drain and
// exit, then releases any Subscribe/Unsubscribe callers still waiting on
// the loop. Without the done signal those callers would block forever and
// stall the HTTP server's graceful shutdown.
func (b *Broker) shutdown(ctx context.Context) {
	close(b.done)

	b.mu.Lock()
	count := len(b.subscribers)
	for sub := range b.subscribers {
		close(sub.send)
		delete(b.subscribers, sub)
		metrics.BrokerSubscribers.WithLabelValues(sub.transport).Dec()
	}
	b.mu.Unlock()

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "notification-broker").
		Str("reason", reason).
		Int("subscribers_closed", count).
		Msg("notification broker stopped")
}

// PublishProfile broadcasts a newly recorded session profile. The profile
// must not be mutated after publishing.
func (b *Broker) PublishProfile(profile *models.SessionProfile) {
	data, err := json.Marshal(profile)
	if err != nil {
		logging.Error().Err(err).Int64("profile_id", profile.ID).Msg("failed to marshal profile event")
		return
	}
	b.enqueue(Event{Kind: KindProfile, Data: data})
	metrics.BrokerEventsPublished.WithLabelValues(KindProfile).Inc()
}

// PublishTelemetry broadcasts a telemetry update for a session.
func (b *Broker) PublishTelemetry(sessionToken string, sample *models.TelemetrySample) {
	data, err := json.Marshal(telemetryEvent{
		SessionToken: sessionToken,
		Telemetry:    sample,
	})
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal telemetry event")
		return
	}
	b.enqueue(Event{Kind: KindTelemetry, Data: data})
	metrics.BrokerEventsPublished.WithLabelValues(KindTelemetry).Inc()
}

// enqueue hands an event to the broker loop without blocking the publisher.
func (b *Broker) enqueue(event Event) {
	select {
	case b.publish <- event:
	default:
		metrics.BrokerEventsDropped.Inc()
		logging.Warn().Str("kind", event.Kind).Msg("publish channel full, dropping event")
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// ConnectedEvent returns the marker event delivered to a subscriber as soon
// as its transport attaches, before any live events.
func ConnectedEvent() Event {
	data, _ := json.Marshal(pingEvent{Timestamp: time.Now().UTC().Format(time.RFC3339)})
	return Event{Kind: KindConnected, Data: data}
}

func makePingEvent() Event {
	data, _ := json.Marshal(pingEvent{Timestamp: time.Now().UTC().Format(time.RFC3339)})
	return Event{Kind: KindPing, Data: data}
}
