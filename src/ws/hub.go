// Package ws fans dataset updates out to connected dashboard clients over
// WebSocket. Delivery is best effort: a slow or dead client is dropped, never
// retried.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

const (
	// HeartbeatInterval is how often the hub scans for stale connections.
	HeartbeatInterval = 30 * time.Second
	// StaleAfter is how long a client may stay silent before eviction.
	StaleAfter = 60 * time.Second

	writeWait = 10 * time.Second

	// readWait bounds how long a connection may go without any frame at
	// all, pongs included, before the read loop errors out.
	readWait = StaleAfter + HeartbeatInterval
)

// Envelope is the wire shape of every server-to-client message.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// inbound is what clients send us. Only pings are recognized; anything else
// refreshes the liveness clock and is otherwise ignored.
type inbound struct {
	Type string `json:"type"`
}

type client struct {
	id   string
	conn *websocket.Conn

	mu       sync.Mutex
	lastSeen time.Time
}

func (c *client) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

func (c *client) idleSince() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastSeen)
}

// ping probes the peer with a control frame. The browser answers on its own,
// which lands in the pong handler and refreshes lastSeen. Control writes do
// not contend with WriteMessage, so no mutex is taken.
func (c *client) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// send marshals and writes one envelope. Concurrent broadcasts serialize on
// the client mutex because gorilla connections allow one writer at a time.
func (c *client) send(env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub tracks connected clients and broadcasts dataset updates to all of them.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client

	stopOnce sync.Once
	stop     chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard frontend is served from another origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
		stop:    make(chan struct{}),
	}
}

func stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ServeHTTP upgrades the request and runs the client's read loop until the
// connection dies.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithField("component", "ws").
			WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{
		id:       uuid.NewString(),
		conn:     conn,
		lastSeen: time.Now(),
	}

	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		c.touch()
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"component": "ws",
		"client_id": c.id,
		"clients":   total,
	}).Info("WebSocket client connected")

	if err := c.send(Envelope{Type: "connected", Timestamp: stamp()}); err != nil {
		h.drop(c, "ack write failed")
		return
	}

	h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	defer h.drop(c, "connection closed")

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.touch()
		c.conn.SetReadDeadline(time.Now().Add(readWait))

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			if err := c.send(Envelope{Type: "pong", Timestamp: stamp()}); err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(c *client, reason string) {
	h.mu.Lock()
	_, present := h.clients[c.id]
	delete(h.clients, c.id)
	total := len(h.clients)
	h.mu.Unlock()

	c.conn.Close()

	if present {
		logger.WithFields(map[string]interface{}{
			"component": "ws",
			"client_id": c.id,
			"reason":    reason,
			"clients":   total,
		}).Info("WebSocket client disconnected")
	}
}

// Broadcast sends one typed payload to every connected client. Clients whose
// write fails are dropped after the pass.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	env := Envelope{Type: msgType, Data: data, Timestamp: stamp()}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	var failed []*client
	for _, c := range targets {
		if err := c.send(env); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		h.drop(c, "broadcast write failed")
	}

	logger.WithFields(map[string]interface{}{
		"component": "ws",
		"type":      msgType,
		"clients":   len(targets) - len(failed),
	}).Debug("Broadcast delivered")
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Start launches the heartbeat loop: every interval it evicts clients silent
// for longer than StaleAfter and pings the rest.
func (h *Hub) Start() {
	go func() {
		ticker := time.NewTicker(HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				h.heartbeat()
			case <-h.stop:
				return
			}
		}
	}()
}

// heartbeat drops stale clients and probes the live ones. A healthy but idle
// dashboard tab never sends application messages; the pong it returns to our
// ping is what keeps its liveness clock fresh between passes.
func (h *Hub) heartbeat() {
	h.mu.RLock()
	var stale, live []*client
	for _, c := range h.clients {
		if c.idleSince() > StaleAfter {
			stale = append(stale, c)
		} else {
			live = append(live, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.drop(c, "heartbeat timeout")
	}
	for _, c := range live {
		if err := c.ping(); err != nil {
			h.drop(c, "ping write failed")
		}
	}
}

// Shutdown stops the heartbeat loop and closes every connection with a
// normal-closure frame. The context bounds how long we wait on writes.
func (h *Hub) Shutdown(ctx context.Context) {
	h.stopOnce.Do(func() { close(h.stop) })

	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}

	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	for _, c := range clients {
		if err := c.conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
			logger.WithFields(map[string]interface{}{
				"component": "ws",
				"client_id": c.id,
			}).WithError(err).Debug("Close frame write failed")
		}
		c.conn.Close()
	}

	logger.WithFields(map[string]interface{}{
		"component": "ws",
		"clients":   len(clients),
	}).Info("WebSocket hub shut down")
}
