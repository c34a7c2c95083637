package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is one bus message fanned out to websocket clients. Type carries
// the NATS subject, so clients can filter run steps from schedule events.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const writeTimeout = 10 * time.Second

// Hub fans bus events out to connected websocket clients. Slow or dead
// connections are dropped rather than blocking the broadcast loop.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	events chan Event
}

func NewHub() *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]struct{}),
		events: make(chan Event, 256),
	}
}

// Run drains the event channel until the context ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Warn("marshal websocket event", "type", ev.Type, "error", err)
				continue
			}
			h.send(data)
		}
	}
}

func (h *Hub) send(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// Broadcast queues an event, dropping it when the channel is full.
func (h *Hub) Broadcast(ev Event) {
	select {
	case h.events <- ev:
	default:
		slog.Warn("websocket broadcast channel full, dropping event", "type", ev.Type)
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	s.hub.add(conn)
	defer func() {
		s.hub.remove(conn)
		conn.Close()
	}()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
