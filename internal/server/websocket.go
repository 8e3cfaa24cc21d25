package server

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/pdfmask/internal/pipeline"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the HTTP endpoints
	},
}

// wsMessage is the envelope pushed to clients. Progress messages carry the
// percentage; status messages mark terminal run states.
type wsMessage struct {
	Type       string `json:"type"`
	RunID      string `json:"run_id"`
	Percentage int    `json:"percentage,omitempty"`
	Message    string `json:"message,omitempty"`
	Status     string `json:"status,omitempty"`
}

// client is one websocket connection with a serialized writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg wsMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// Hub fans run events out to the websocket connections subscribed to each
// run ID. A run may have several subscribers and a subscriber outlives any
// single message.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*client]struct{})}
}

func (h *Hub) register(runID string, c *client) {
	h.mu.Lock()
	if h.clients[runID] == nil {
		h.clients[runID] = make(map[*client]struct{})
	}
	h.clients[runID][c] = struct{}{}
	h.mu.Unlock()
	recordWebsocketConnect()
}

func (h *Hub) unregister(runID string, c *client) {
	h.mu.Lock()
	if set, ok := h.clients[runID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, runID)
		}
	}
	h.mu.Unlock()
	recordWebsocketDisconnect()
}

func (h *Hub) broadcast(runID string, msg wsMessage) {
	h.mu.RLock()
	set := h.clients[runID]
	targets := make([]*client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(msg); err != nil {
			slog.Debug("websocket send failed", "run_id", runID, "error", err)
		} else {
			recordWebsocketMessage()
		}
	}
}

// Sink returns a progress sink that forwards pipeline events to the run's
// subscribers.
func (h *Hub) Sink(runID string) pipeline.Sink {
	return pipeline.SinkFunc(func(event pipeline.ProgressEvent) {
		h.broadcast(runID, wsMessage{
			Type:       "progress",
			RunID:      runID,
			Percentage: event.Percentage,
			Message:    event.Message,
		})
	})
}

// SendStatus pushes a terminal run state to the run's subscribers.
func (h *Hub) SendStatus(runID, status, message string) {
	h.broadcast(runID, wsMessage{
		Type:    "status",
		RunID:   runID,
		Status:  status,
		Message: message,
	})
}

// websocketHandler upgrades GET /ws/{client_id} and keeps the connection
// alive with pings until the client goes away.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimPrefix(r.URL.Path, "/ws/")
	if runID == "" || strings.Contains(runID, "/") {
		writeErrorResponse(w, "client id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn}
	s.hub.register(runID, c)

	defer func() {
		s.hub.unregister(runID, c)
		conn.Close()
	}()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	// Read loop only services control frames; clients do not send data.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
