// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package events

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/flytrap/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // monitors only send pings
)

// wsMessage is the WebSocket frame shape: the event kind plus its
// already-serialized payload.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client bridges one WebSocket connection to a broker subscription.
type Client struct {
	broker *Broker
	sub    *Subscriber
	conn   *websocket.Conn
}

// NewClient creates a client for an upgraded connection. The caller must
// have already subscribed to the broker.
func NewClient(broker *Broker, sub *Subscriber, conn *websocket.Conn) *Client {
	return &Client{
		broker: broker,
		sub:    sub,
		conn:   conn,
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump discards inbound frames and watches for disconnect.
func (c *Client) readPump() {
	defer func() {
		c.broker.Unsubscribe(c.sub)
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}
	}
}

// writePump pumps broker events to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	// Connected marker precedes any live events
	if err := c.writeEvent(ConnectedEvent()); err != nil {
		return
	}

	for {
		select {
		case event, ok := <-c.sub.Events():
			if !ok {
				// The broker closed the subscription
				if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err == nil {
					_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				}
				return
			}

			if err := c.writeEvent(event); err != nil {
				logging.Error().Err(err).Msg("failed to write websocket event")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeEvent(event Event) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(wsMessage{
		Type: event.Kind,
		Data: event.Data,
	})
}
