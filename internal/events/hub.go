package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/turtle-trading/internal/logger"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"go.uber.org/zap"
)

const (
	EventTypeSignal = "signal"
	EventTypeTrade  = "trade"

	sendBufferSize = 64
	writeWait      = 10 * time.Second
)

// Envelope is the JSON frame sent to every client.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts signals and trades to WebSocket clients. A client that
// cannot keep up is disconnected rather than slowing the trading path.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Hub{
		mu:      sync.RWMutex{},
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log.Named("hub"),
	}
}

// Router serves the feed at /ws and a health probe at /healthz.
func (h *Hub) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/ws", h.ServeWs).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.serveHealth).Methods(http.MethodGet)

	return router
}

// ServeWs upgrades the request and registers the client.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))

		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.log.Debug("WebSocket client registered", zap.String("remote", r.RemoteAddr))

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": h.ClientCount(),
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// OnSignal implements Sink.
func (h *Hub) OnSignal(signal types.Signal) {
	h.Broadcast(EventTypeSignal, signal)
}

// OnTrade implements Sink.
func (h *Hub) OnTrade(trade types.Trade) {
	h.Broadcast(EventTypeTrade, trade)
}

// Broadcast sends one envelope to every client without blocking.
func (h *Hub) Broadcast(eventType string, data any) {
	message, err := json.Marshal(Envelope{Type: eventType, Data: data})
	if err != nil {
		h.log.Error("Failed to marshal event", zap.String("type", eventType), zap.Error(err))

		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- message:
		default:
			h.log.Warn("Dropping slow WebSocket client")
			h.removeLocked(c)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.log.Debug("WebSocket write failed", zap.Error(err))
			h.remove(c)

			return
		}
	}

	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump discards client input and unregisters the client once the connection drops.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
