package echoapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/slide"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// LiveEvent is pushed to live-reload clients.
type LiveEvent struct {
	Type     string          `json:"type"`
	Manifest *slide.Manifest `json:"manifest,omitempty"`
}

// Hub fans live-reload events out to the connected websocket clients.
type Hub struct {
	mu       sync.Mutex
	clients  map[chan []byte]struct{}
	closed   bool
	upgrader websocket.Upgrader
	logger   core.Logger
}

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		clients: make(map[chan []byte]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) BroadcastManifest(m slide.Manifest) {
	h.Broadcast(LiveEvent{Type: "slides-updated", Manifest: &m})
}

// Broadcast sends ev to every client. Clients whose buffer is full miss the event.
func (h *Hub) Broadcast(ev LiveEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encoding live event", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for send := range h.clients {
		select {
		case send <- data:
		default:
			h.logger.Warn("live client too slow, event dropped")
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for send := range h.clients {
		close(send)
		delete(h.clients, send)
	}
}

func (h *Hub) register() (chan []byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	send := make(chan []byte, sendBuffer)
	h.clients[send] = struct{}{}
	return send, true
}

func (h *Hub) unregister(send chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[send]; ok {
		delete(h.clients, send)
		close(send)
	}
}

func (h *Hub) serveWS(ctx echo.Context) error {
	send, ok := h.register()
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server is shutting down")
	}
	defer h.unregister(send)

	conn, err := h.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already answered
		return nil
	}
	defer conn.Close()

	// reader: handles pongs and notices when the client goes away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	hello, _ := json.Marshal(LiveEvent{Type: "connected"})
	if err = h.write(conn, websocket.TextMessage, hello); err != nil {
		return nil
	}
	for {
		select {
		case data, ok := <-send:
			if !ok {
				_ = h.write(conn, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				select {
				case <-gone:
				case <-time.After(writeWait):
				}
				return nil
			}
			if err = h.write(conn, websocket.TextMessage, data); err != nil {
				return nil
			}
		case <-ticker.C:
			if err = h.write(conn, websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-gone:
			return nil
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, messageType int, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, data)
}
