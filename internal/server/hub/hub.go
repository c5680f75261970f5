package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"qms-exporter/internal/worker"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many updates a client may fall behind before it
	// is dropped.
	sendBuffer = 32
)

type JobUpdate struct {
	Type    string `json:"type"` // "job_update" or "client_count"
	JobID   string `json:"job_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Pages   int    `json:"pages,omitempty"`
	Error   string `json:"error,omitempty"`
	Clients int    `json:"clients,omitempty"`
}

// client owns one connection. Only its write loop touches the socket.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans job updates out to every connected websocket client.
// Broadcast only queues; a stalled client never holds up the caller.
type Hub struct {
	clients map[*websocket.Conn]*client
	mu      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
	}
}

func (h *Hub) Register(conn *websocket.Conn) {
	c, count := h.attach(conn)
	go h.writeLoop(c)
	slog.Info("Stream client connected", "total_connections", count)
	h.Broadcast(JobUpdate{Type: "client_count", Clients: count})
}

// attach adds conn without starting its write loop.
func (h *Hub) attach(conn *websocket.Conn) (*client, int) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = c
	return c, len(h.clients)
}

func (h *Hub) writeLoop(c *client) {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Warn("Broadcast failed, dropping client", "error", err)
			h.Unregister(c.conn)
			return
		}
	}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[conn]; ok {
		h.dropLocked(c)
		slog.Info("Stream client disconnected", "total_connections", len(h.clients))
	}
}

func (h *Hub) dropLocked(c *client) {
	delete(h.clients, c.conn)
	close(c.send)
	c.conn.Close()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues update for every client. Clients whose queue is full
// are disconnected.
func (h *Hub) Broadcast(update JobUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		slog.Error("Encode broadcast failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slog.Warn("Stream client too slow, dropping", "queued", len(c.send))
			h.dropLocked(c)
		}
	}
}

// JobChanged implements worker.Notifier.
func (h *Hub) JobChanged(v worker.JobView) {
	h.Broadcast(JobUpdate{
		Type:   "job_update",
		JobID:  v.ID,
		Status: string(v.Status),
		Kind:   v.Kind,
		Pages:  v.Pages,
		Error:  v.Error,
	})
}
