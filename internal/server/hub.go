package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vkazakov/chatline/internal/model/event"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub tracks the websocket connections of logged-in users and fans events
// out to them. The client side is receive-only; inbound frames are read
// just to notice disconnects.
type Hub struct {
	mu    sync.RWMutex
	conns map[int64]map[*hubClient]bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[int64]map[*hubClient]bool)}
}

// Add registers a connection for a user and starts its pumps.
func (h *Hub) Add(userID int64, conn *websocket.Conn) {
	c := &hubClient{conn: conn, send: make(chan []byte, 32)}

	h.mu.Lock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*hubClient]bool)
	}
	h.conns[userID][c] = true
	h.mu.Unlock()

	log.Printf("[hub] user %d connected", userID)

	go h.writePump(c)
	go h.readPump(userID, c)
}

// Send fans an event out to every connection of one user. Slow consumers
// are dropped rather than allowed to back the hub up.
func (h *Hub) Send(userID int64, typ event.Type, payload any) {
	h.mu.RLock()
	clients := make([]*hubClient, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	frame, err := json.Marshal(map[string]any{"type": typ, "payload": payload})
	if err != nil {
		log.Printf("[hub] encode %s event: %v", typ, err)
		return
	}

	for _, c := range clients {
		select {
		case c.send <- frame:
		default:
			h.remove(userID, c)
		}
	}
}

// CloseAll tears down every connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, clients := range h.conns {
		for c := range clients {
			close(c.send)
			delete(clients, c)
		}
		delete(h.conns, userID)
	}
}

func (h *Hub) remove(userID int64, c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.conns[userID]; ok {
		if clients[c] {
			delete(clients, c)
			close(c.send)
		}
		if len(clients) == 0 {
			delete(h.conns, userID)
		}
	}
}

func (h *Hub) readPump(userID int64, c *hubClient) {
	defer func() {
		h.remove(userID, c)
		c.conn.Close()
		log.Printf("[hub] user %d disconnected", userID)
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
