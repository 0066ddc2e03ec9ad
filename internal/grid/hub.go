package grid

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/pinchview/internal/aggregate"
	"github.com/ayusman/pinchview/internal/detector"
	"github.com/ayusman/pinchview/internal/log"
	"github.com/gorilla/websocket"
)

// Message types sent to live subscribers.
const (
	TypeGrid   = "grid"
	TypeMetric = "metric"
	TypeFPS    = "fps"
	TypeMirror = "mirror"
)

// Message is one live update.
type Message struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

const (
	sendBuffer = 16
	writeWait  = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local viewer
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is a Widget that keeps the latest grid snapshot and fans live messages
// out to websocket subscribers. Slow subscribers drop messages rather than
// stall the caller.
type Hub struct {
	logger log.Logger

	mu       sync.RWMutex
	snapshot aggregate.Result
	clients  map[*client]struct{}
}

var _ Widget = (*Hub)(nil)

// NewHub creates a Hub with an empty snapshot.
func NewHub(logger log.Logger) *Hub {
	return &Hub{
		logger:   logger,
		snapshot: emptyResult(),
		clients:  make(map[*client]struct{}),
	}
}

func emptyResult() aggregate.Result {
	return aggregate.Result{
		Landmarks:   []detector.Point3D{},
		Connections: []detector.Connection{},
		Groups:      []aggregate.ColorGroup{},
	}
}

// UpdateLandmarks implements Widget.
func (h *Hub) UpdateLandmarks(landmarks []detector.Point3D, connections []detector.Connection, groups []aggregate.ColorGroup) {
	snap := aggregate.Result{
		Landmarks:   append([]detector.Point3D{}, landmarks...),
		Connections: append([]detector.Connection{}, connections...),
		Groups:      append([]aggregate.ColorGroup{}, groups...),
	}

	h.mu.Lock()
	h.snapshot = snap
	h.mu.Unlock()

	h.Broadcast(TypeGrid, snap)
}

// Clear implements Widget.
func (h *Hub) Clear() {
	snap := emptyResult()

	h.mu.Lock()
	h.snapshot = snap
	h.mu.Unlock()

	h.Broadcast(TypeGrid, snap)
}

// Snapshot returns the last grid state.
func (h *Hub) Snapshot() aggregate.Result {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message of the given type to every subscriber.
func (h *Hub) Broadcast(kind string, data any) {
	msg, err := encode(kind, data)
	if err != nil {
		h.logger.Errorf("encode %s message: %v", kind, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debugf("dropping %s message for slow subscriber", kind)
		}
	}
}

func encode(kind string, data any) ([]byte, error) {
	return json.Marshal(Message{
		Type:      kind,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

// ServeHTTP upgrades the request to a websocket and streams messages until
// the client goes away. The current snapshot is sent first.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("websocket upgrade: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if first, err := encode(TypeGrid, h.Snapshot()); err == nil {
		c.send <- first
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	go h.writeLoop(c, done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(done)
	conn.Close()
}

func (h *Hub) writeLoop(c *client, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debugf("websocket write: %v", err)
				c.conn.Close()
				return
			}
		}
	}
}
