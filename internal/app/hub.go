package app

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"Hydrosync/internal/model"
	"Hydrosync/internal/syncutil"
)

const (
	writeWait    = 2 * time.Second
	sendBuffer   = 8
	maxInboundWS = 512
)

type client struct {
	conn *websocket.Conn
	send chan []byte
	id   uuid.UUID
}

// Hub is the websocket renderer: every rendered view is pushed as JSON to
// all connected dashboards. A client that falls behind misses frames
// rather than slowing the consumer.
type Hub struct {
	clients  map[uuid.UUID]*client
	last     atomic.Pointer[[]byte]
	upgrader websocket.Upgrader
	dropped  atomic.Int64
	mu       syncutil.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[uuid.UUID]*client),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// Render implements core.Renderer. It never blocks.
func (h *Hub) Render(view model.View) {
	b, err := json.Marshal(view)
	if err != nil {
		log.Error().Err(err).Str("component", "dashboard").Msg("failed to encode view")
		return
	}
	h.last.Store(&b)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		select {
		case c.send <- b:
		default:
			h.dropped.Add(1)
			log.Debug().Str("component", "dashboard").Stringer("client", id).Msg("client behind, frame dropped")
		}
	}
}

// Clients returns the number of connected dashboards.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many frames were skipped for slow clients.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// ServeWS upgrades the request and streams views until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("component", "dashboard").Msg("websocket upgrade failed")
		return
	}
	c := &client{id: uuid.New(), conn: conn, send: make(chan []byte, sendBuffer)}
	if last := h.last.Load(); last != nil {
		c.send <- *last
	}
	h.add(c)
	log.Info().Str("component", "dashboard").Stringer("client", c.id).Str("remote", r.RemoteAddr).Msg("websocket client connected")

	go h.writePump(c)
	h.readPump(c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		_ = c.conn.Close()
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// readPump discards inbound frames; it returns when the connection drops.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		log.Info().Str("component", "dashboard").Stringer("client", c.id).Msg("websocket client disconnected")
	}()
	c.conn.SetReadLimit(maxInboundWS)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer func() {
		if err := c.conn.Close(); err != nil {
			log.Debug().Err(err).Str("component", "dashboard").Msg("close websocket")
		}
	}()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debug().Err(err).Str("component", "dashboard").Stringer("client", c.id).Msg("websocket write failed")
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}
