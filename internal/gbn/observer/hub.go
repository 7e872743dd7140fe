// Package observer exposes a feed of endpoint trace events over a
// websocket, for a live dashboard to watch traffic on the simulated
// channel. It is a drastic simplification of a full connection hub:
// broadcast-only, no auth, no channel subscriptions — every connected
// client sees every event.
package observer

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is one observation pushed to every connected client.
type Event struct {
	Time      string `json:"time"`
	Endpoint  string `json:"endpoint"`
	Kind      string `json:"kind"` // "drop", "deliver", "retransmit", "timeout"
	Seq       uint64 `json:"seq"`
	Reason    string `json:"reason,omitempty"`
	PayloadLen int   `json:"payload_len,omitempty"`
}

// Hub is a broadcast-only connection registry.
type Hub struct {
	mu    sync.Mutex
	conns map[*connection]struct{}
	log   *zap.Logger
}

// NewHub creates an empty Hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{conns: make(map[*connection]struct{}), log: log}
}

// Broadcast pushes ev to every currently connected client; clients that
// can't keep up (full send buffer) are dropped.
func (h *Hub) Broadcast(ev Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("observer: marshal event failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.send <- raw:
		default:
			h.log.Warn("observer: dropping slow client")
			h.removeLocked(c)
			close(c.send)
		}
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) removeLocked(c *connection) {
	delete(h.conns, c)
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; ok {
		h.removeLocked(c)
		close(c.send)
	}
}

// ServeHTTP upgrades the request to a websocket and registers the
// resulting connection on the hub. It never blocks.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("observer: upgrade failed", zap.Error(err))
		return
	}
	c := &connection{ws: ws, send: make(chan []byte, sendBuffer)}
	h.register(c)

	go c.writePump()
	go c.readPump(h)
}
