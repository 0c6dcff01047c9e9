package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ksavkin/SwiftLabel/internal/domain/session"
	"github.com/ksavkin/SwiftLabel/internal/infrastructure/logging"
	"github.com/ksavkin/SwiftLabel/internal/infrastructure/monitoring"
)

// Envelope is the outbound message frame.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// writeWait bounds how long a single frame write may block. Broadcasts run
// on the command path, so a peer that stops reading must not stall commands
// once its TCP buffer fills.
const writeWait = 5 * time.Second

// client is one connected WebSocket peer. Writes are serialized through mu;
// gorilla connections do not allow concurrent writers.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(env)
}

// Hub tracks connected clients and fans events out to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	engine  *session.Engine
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewHub creates a hub bound to an engine. Engine listeners trigger a
// state_update broadcast so every peer converges after any command,
// regardless of which transport issued it.
func NewHub(engine *session.Engine, metrics *monitoring.Metrics, logger *logging.Logger) *Hub {
	h := &Hub{
		clients: make(map[string]*client),
		engine:  engine,
		metrics: metrics,
		logger:  logger,
	}
	engine.AddListener(h.BroadcastState)
	return h
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.metrics.IncWSConnections()
}

// remove is idempotent: the reader goroutine and a failed broadcast may
// both try to drop the same peer.
func (h *Hub) remove(id string) {
	h.mu.Lock()
	_, present := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if present {
		h.metrics.DecWSConnections()
	}
}

// Broadcast sends an event to every connected client. A peer whose write
// fails or times out is closed and dropped so it cannot stall the command
// that triggered the broadcast.
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	env := Envelope{Type: eventType, Payload: payload}

	h.mu.RLock()
	peers := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		peers = append(peers, c)
	}
	h.mu.RUnlock()

	for _, c := range peers {
		if err := c.send(env); err != nil {
			h.logger.Debug("WebSocket write failed, dropping client",
				zap.String("client", c.id),
				zap.Error(err))
			c.conn.Close()
			h.remove(c.id)
			continue
		}
		h.metrics.RecordWSMessage("outbound", eventType)
	}
}

// BroadcastState pushes the full session state to every client.
func (h *Hub) BroadcastState() {
	h.Broadcast("state_update", h.engine.GetState())
}

// ConnectionCount returns the number of connected clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
