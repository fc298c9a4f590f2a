package server

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pitwall/pitwall/internal/channel"
	"github.com/pitwall/pitwall/pkg/core"
	"github.com/pitwall/pitwall/pkg/streaming"
)

// DefaultClientBuffer is the per-client frame queue when none is configured.
const DefaultClientBuffer = 256

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send channel.Channel[[]byte]
}

// Hub fans frames out to dashboard websocket clients. A client whose queue
// is full misses frames rather than slowing the simulation down.
type Hub struct {
	logger     *slog.Logger
	bufferSize int
	// Status, when set, is sent to every client as it connects.
	Status func() streaming.StatusPayload

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewHub creates a hub.
func NewHub(bufferSize int, logger *slog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultClientBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger.With("component", "hub"),
		bufferSize: bufferSize,
		clients:    make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many messages were not queued because a client was behind.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Broadcast queues a frame for every client. It never blocks.
func (h *Hub) Broadcast(f core.Frame) {
	data, err := streaming.Marshal(streaming.TypeFrame, f)
	if err != nil {
		h.logger.Error("failed to marshal frame", "seq", f.Seq, "error", err)
		return
	}
	h.broadcast(data)
}

// BroadcastStatus queues a status message for every client.
func (h *Hub) BroadcastStatus(p streaming.StatusPayload) {
	data, err := streaming.Marshal(streaming.TypeStatus, p)
	if err != nil {
		h.logger.Error("failed to marshal status", "error", err)
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.send.TrySend(data) {
			h.sent.Add(1)
		} else {
			h.dropped.Add(1)
		}
	}
}

// ServeHTTP upgrades the request and streams messages until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: channel.New[[]byte](h.bufferSize)}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	if h.Status != nil {
		if data, err := streaming.Marshal(streaming.TypeStatus, h.Status()); err == nil {
			c.send.TrySend(data)
		}
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.writeLoop(c)
	}()
	h.readLoop(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Info("websocket client connected", "remote", c.conn.RemoteAddr().String(), "clients", len(h.clients))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.send.Close()
	if ok {
		h.logger.Info("websocket client disconnected", "remote", c.conn.RemoteAddr().String(), "clients", n)
	}
}

// readLoop discards client input; it exists to notice disconnects and pongs.
func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send.Receive():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and waits for their writers to finish.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.send.Close()
	}
	h.wg.Wait()
}
