package events

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bridged-token-ledger/internal/domain"
)

// HubConfig configures WebSocket stream behavior.
type HubConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SendBuffer is the per-client outbound queue size.
	SendBuffer int
}

// DefaultHubConfig returns default stream configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   256,
	}
}

// Hub streams committed event records to WebSocket indexer clients. It is a
// Recorder; a client that cannot keep up is disconnected and expected to
// resync from the durable event store.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. A nil config uses defaults.
func NewHub(config *HubConfig, logger *log.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultHubConfig().SendBuffer
	}
	return &Hub{
		config:  cfg,
		clients: make(map[*hubClient]struct{}),
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Stream is fronted by the same trusted proxy as the API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and registers the client for the live feed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("websocket upgrade failed: %v", err)
		}
		return
	}

	client := &hubClient{conn: conn, send: make(chan []byte, h.config.SendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writePump(client)
	go h.readPump(client)
}

// Record implements Recorder: broadcast the record as a JSON frame.
func (h *Hub) Record(_ context.Context, record *domain.EventRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Client queue full, disconnect it.
			delete(h.clients, client)
			close(client.send)
		}
	}
	return nil
}

// ClientCount returns the number of connected stream clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

// writePump drains the client queue and keeps the connection alive with
// pings. It owns all writes to the connection.
func (h *Hub) writePump(client *hubClient) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.send:
			if err := client.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout)); err != nil {
				h.drop(client)
				return
			}
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.drop(client)
				return
			}
		case <-ticker.C:
			if err := client.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout)); err != nil {
				h.drop(client)
				return
			}
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(client)
				return
			}
		}
	}
}

// readPump discards inbound frames and detects client disconnects.
func (h *Hub) readPump(client *hubClient) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			h.drop(client)
			return
		}
	}
}

func (h *Hub) drop(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

var _ Recorder = (*Hub)(nil)
