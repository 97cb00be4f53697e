// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package api

import (
	"fmt"
	"net/http"

	"github.com/tomtom215/flytrap/internal/events"
	"github.com/tomtom215/flytrap/internal/logging"
)

// Events streams broker events to a monitor over Server-Sent Events. Each
// event is framed as an `event:` line naming the kind and a `data:` line
// carrying the JSON payload. The stream opens with a `connected` marker;
// nothing published before the subscription is replayed.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := h.broker.Subscribe("sse")
	defer h.broker.Unsubscribe(sub)

	logging.Info().Msg("SSE monitor connected")

	if err := writeSSE(w, events.ConnectedEvent()); err != nil {
		return
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("SSE monitor disconnected")
			return
		case event, open := <-sub.Events():
			if !open {
				return
			}
			if err := writeSSE(w, event); err != nil {
				logging.Debug().Err(err).Msg("SSE write failed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event events.Event) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, event.Data)
	return err
}

// WebSocket upgrades a monitor connection and feeds it from the same broker
// as the SSE stream.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	sub := h.broker.Subscribe("websocket")
	client := events.NewClient(h.broker, sub, conn)
	client.Start()
}
