// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seek-irl/seekd/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// clientIDCounter gives every client a stable sort key so fan-out order
// is reproducible within a process run.
var clientIDCounter atomic.Uint64

// Client sits between one websocket connection and the hub. Its scope
// set decides which broadcasts it receives.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	mu     sync.RWMutex
	scopes map[string]struct{}
}

// NewClient wraps a connection. initialScopes seeds the subscription set
// from query parameters before the read pump starts.
func NewClient(hub *Hub, conn *websocket.Conn, initialScopes ...string) *Client {
	scopes := make(map[string]struct{}, len(initialScopes))
	for _, s := range initialScopes {
		if s != "" {
			scopes[s] = struct{}{}
		}
	}
	return &Client{
		id:     clientIDCounter.Add(1),
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, 256),
		scopes: scopes,
	}
}

// Start registers the client and begins both pumps.
func (c *Client) Start() {
	c.hub.Register <- c
	go c.writePump()
	go c.readPump()
}

func (c *Client) subscribed(scope string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.scopes[scope]
	return ok
}

func (c *Client) subscribe(scope string) {
	if scope == "" {
		return
	}
	c.mu.Lock()
	c.scopes[scope] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) unsubscribe(scope string) {
	c.mu.Lock()
	delete(c.scopes, scope)
	c.mu.Unlock()
}

// readPump consumes control messages (subscribe, unsubscribe, ping)
// until the connection drops, then unregisters.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Msg("unexpected websocket close")
			}
			return
		}

		switch msg.Type {
		case MessageTypeSubscribe:
			c.subscribe(scopeFrom(msg))
		case MessageTypeUnsubscribe:
			c.unsubscribe(scopeFrom(msg))
		case MessageTypePing:
			select {
			case c.send <- Message{Type: MessageTypePong}:
			default:
			}
		}
	}
}

// scopeFrom accepts the scope either in the envelope field or as the
// bare Data string; clients use both forms.
func scopeFrom(msg Message) string {
	if msg.Scope != "" {
		return msg.Scope
	}
	if s, ok := msg.Data.(string); ok {
		return s
	}
	return ""
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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
