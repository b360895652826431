package services

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nazar/internal/models"
)

// Message types pushed to or accepted from websocket clients
const (
	MessageSnapshot    = "snapshot"
	MessageAlert       = "alert"
	MessagePing        = "ping"
	MessagePong        = "pong"
	MessageAuth        = "auth"
	MessageAuthSuccess = "auth_success"
	MessageAuthError   = "auth_error"
	MessageError       = "error"
)

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Token     string    `json:"token,omitempty"` // For auth messages from client
}

// ClientConnection represents a connected WebSocket client
type ClientConnection struct {
	ID   string
	Conn *websocket.Conn
	Send chan WebSocketMessage

	closed bool // guarded by Hub.mu
}

// Hub fans snapshot and alert messages out to every connected client.
// Slow clients lose messages rather than blocking the hub.
type Hub struct {
	clients    map[string]*ClientConnection
	broadcast  chan WebSocketMessage
	register   chan *ClientConnection
	unregister chan string
	done       chan struct{}
	mu         sync.RWMutex
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*ClientConnection),
		broadcast:  make(chan WebSocketMessage, 256),
		register:   make(chan *ClientConnection),
		unregister: make(chan string),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run manages the hub's event loop until ctx is cancelled. It must be
// called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				closeClient(client)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if old, exists := h.clients[client.ID]; exists {
				closeClient(old)
			}
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("websocket client connected", zap.String("client", client.ID), zap.Int("total", total))

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, exists := h.clients[clientID]; exists {
				delete(h.clients, clientID)
				closeClient(client)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("websocket client disconnected", zap.String("client", clientID), zap.Int("total", total))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.Send <- msg:
				default:
					// Client's send channel is full, skip this message
				}
			}
			h.mu.RUnlock()
		}
	}
}

// closeClient must be called with mu held
func closeClient(client *ClientConnection) {
	if !client.closed {
		client.closed = true
		close(client.Send)
	}
}

// Register adds a new client to the hub. It reports false once the hub
// has stopped.
func (h *Hub) Register(client *ClientConnection) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(clientID string) {
	select {
	case h.unregister <- clientID:
	case <-h.done:
	}
}

// ClientCount is the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. It never blocks; when the queue
// is full the message is dropped.
func (h *Hub) Broadcast(msg WebSocketMessage) bool {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.logger.Debug("websocket broadcast dropped", zap.String("type", msg.Type))
		return false
	}
}

// SendTo queues a direct reply for one client without blocking; a full
// queue drops the message. It reports false once the hub has closed the
// client's Send channel.
func (h *Hub) SendTo(client *ClientConnection, msg WebSocketMessage) bool {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client.closed {
		return false
	}
	select {
	case client.Send <- msg:
	default:
		h.logger.Debug("websocket reply dropped", zap.String("client", client.ID), zap.String("type", msg.Type))
	}
	return true
}

// PublishEvaluation pushes a snapshot together with its health report.
func (h *Hub) PublishEvaluation(e Evaluation) {
	h.Broadcast(WebSocketMessage{
		Type:      MessageSnapshot,
		Timestamp: e.Snapshot.Timestamp,
		Data:      e,
	})
}

// PublishAlert pushes a newly fired alert.
func (h *Hub) PublishAlert(a models.Alert) {
	h.Broadcast(WebSocketMessage{
		Type:      MessageAlert,
		Timestamp: a.CreatedAt,
		Data:      a,
	})
}
