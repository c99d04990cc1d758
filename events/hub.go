package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type HubOptions struct {
	PingInterval time.Duration
	// WriteTimeout bounds each write and the wait for a pong.
	WriteTimeout time.Duration
	// SendBuffer is the number of events queued per client before dropping.
	SendBuffer int
}

// Hub is a websocket change feed: every published [Event] is written as a
// JSON text message to every connected client.
//
// Clients only receive. A client whose queue is full misses events instead of
// slowing down the publisher.
type Hub struct {
	options  HubOptions
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

var _ Publisher = (*Hub)(nil)

func NewHub(options HubOptions, logger *slog.Logger) *Hub {
	if options.PingInterval <= 0 {
		options.PingInterval = 30 * time.Second //nolint: mnd // arbitrary
	}
	if options.WriteTimeout <= 0 {
		options.WriteTimeout = 10 * time.Second //nolint: mnd // arbitrary
	}
	if options.SendBuffer <= 0 {
		options.SendBuffer = 64 //nolint: mnd // arbitrary
	}
	return &Hub{
		options: options,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024, //nolint: mnd // arbitrary
			WriteBufferSize: 1024, //nolint: mnd // arbitrary
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, h.options.SendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "from", r.RemoteAddr, "clients", h.ClientCount())

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) Publish(_ context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("could not marshal event", "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("websocket client queue full, event dropped", "op", e.Op, "id", e.ID)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// unregister closes the client queue once, whichever of the pumps or Close gets there first.
func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		close(c.send)
		h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
	}
}

// readPump discards incoming messages; it exists to process control frames
// and to notice disconnects.
func (h *Hub) readPump(c *hubClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	wait := h.options.PingInterval + h.options.WriteTimeout
	c.conn.SetReadLimit(512) //nolint: mnd // clients do not send payloads
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(wait)) })

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "err", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(h.options.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.options.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.options.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
