// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package services

import (
	"context"
)

// ContextBroker matches *events.Broker's RunWithContext method without
// importing the events package.
type ContextBroker interface {
	RunWithContext(ctx context.Context) error
}

// BrokerService wraps the event broker as a supervised service. The
// broker's RunWithContext already follows the suture.Service pattern, so
// this wrapper only delegates and names it for the event log.
type BrokerService struct {
	broker ContextBroker
	name   string
}

// NewBrokerService creates a broker service wrapper.
func NewBrokerService(broker ContextBroker) *BrokerService {
	return &BrokerService{
		broker: broker,
		name:   "event-broker",
	}
}

// Serve implements suture.Service.
func (b *BrokerService) Serve(ctx context.Context) error {
	return b.broker.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture's event log.
func (b *BrokerService) String() string {
	return b.name
}
