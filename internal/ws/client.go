// Package ws owns the persistent push channel: one receive-only websocket
// connection whose frames are decoded in arrival order onto an event
// channel for the router to drain.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vkazakov/chatline/internal/model/event"
)

// ErrAlreadyConnected is returned by Connect on a client that already holds
// a live connection. One Client serves one screen mount; remounting means a
// fresh Client.
var ErrAlreadyConnected = errors.New("ws: already connected")

// Client manages the single duplex connection to the push endpoint. The
// client never writes; inbound frames are decoded once and delivered on
// Events in socket-arrival order. There is no reconnection, heartbeat or
// backoff: a dropped connection closes the event channel and the owner
// decides what to do (the page-reload analog).
type Client struct {
	url    string
	dialer *websocket.Dialer
	events chan event.Event
	quit   chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// New builds a client for the given ws:// URL. The jar carries the session
// cookies so the handshake authenticates like any REST call.
func New(wsURL string, jar http.CookieJar) *Client {
	return &Client{
		url: wsURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
			Jar:              jar,
		},
		events: make(chan event.Event, 16),
		quit:   make(chan struct{}),
	}
}

// Connect opens the connection and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return ErrAlreadyConnected
	}
	if c.closed {
		return errors.New("ws: client is closed")
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("ws dial %s: %w", c.url, err)
	}
	c.conn = conn
	log.Printf("[ws] connected to %s", c.url)

	go c.readLoop(conn)
	return nil
}

// Events delivers decoded push frames strictly in arrival order. The
// channel is closed when the connection drops or Disconnect is called.
func (c *Client) Events() <-chan event.Event { return c.events }

// Disconnect closes the connection and releases it. Safe to call at any
// time, including when not connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	alreadyClosed := c.closed
	c.conn = nil
	c.closed = true
	c.mu.Unlock()

	if !alreadyClosed {
		// Unblocks a read loop stuck delivering to a consumer that
		// already stopped draining.
		close(c.quit)
	}
	if conn != nil {
		_ = conn.Close()
	} else if !alreadyClosed {
		// Never connected; close the channel ourselves so a draining
		// router still terminates.
		close(c.events)
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer close(c.events)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			requested := c.closed
			c.mu.Unlock()
			if requested || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ws] disconnected")
			} else {
				log.Printf("[ws] read error: %v", err)
			}
			return
		}

		ev, err := event.Decode(data)
		if err != nil {
			// Protocol error; the channel carries no framing we could
			// resync on, so treat the connection as poisoned.
			log.Printf("[ws] protocol error: %v", err)
			_ = conn.Close()
			return
		}

		select {
		case c.events <- ev:
		case <-c.quit:
			return
		}
	}
}
