package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nazar/internal/middleware"
	"nazar/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// WebSocketController upgrades authenticated clients and attaches them to the hub.
type WebSocketController struct {
	hub       *services.Hub
	auth      *services.AuthService
	monitor   *services.Monitor
	security  *middleware.SecurityLogger
	validator *middleware.InputValidator
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

func NewWebSocketController(hub *services.Hub, auth *services.AuthService, monitor *services.Monitor, security *middleware.SecurityLogger, logger *zap.Logger) *WebSocketController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketController{
		hub:       hub,
		auth:      auth,
		monitor:   monitor,
		security:  security,
		validator: middleware.NewInputValidator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by the CORS middleware and the token
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleWebSocket handles incoming WebSocket connections
func (wc *WebSocketController) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" || !wc.validator.ValidateToken(token) {
		wc.security.LogFailedAuth(c.ClientIP(), "missing or malformed token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := wc.auth.ValidateToken(token)
	if err != nil {
		wc.security.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ws, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wc.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	wc.security.LogWebSocketConnected(c.ClientIP(), claims.ClientName)

	client := &services.ClientConnection{
		ID:   claims.ClientName + "-" + uuid.NewString(),
		Conn: ws,
		Send: make(chan services.WebSocketMessage, 256),
	}

	// Seed the client with the latest state before live updates start
	if eval, ok := wc.monitor.Latest(); ok {
		client.Send <- services.WebSocketMessage{
			Type:      services.MessageSnapshot,
			Timestamp: eval.Snapshot.Timestamp,
			Data:      eval,
		}
	}

	if !wc.hub.Register(client) {
		ws.Close()
		return
	}

	go wc.readPump(client, c.ClientIP())
	go wc.writePump(client)
}

// readPump reads messages from the WebSocket client
func (wc *WebSocketController) readPump(client *services.ClientConnection, ip string) {
	defer func() {
		wc.hub.Unregister(client.ID)
		client.Conn.Close()
		wc.security.LogWebSocketDisconnected(ip, client.ID)
	}()

	client.Conn.SetReadLimit(4096)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg services.WebSocketMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				wc.logger.Warn("websocket read failed", zap.String("client", client.ID), zap.Error(err))
			}
			return
		}

		var reply *services.WebSocketMessage
		switch msg.Type {
		case services.MessagePing:
			reply = &services.WebSocketMessage{Type: services.MessagePong}

		case services.MessageAuth:
			// Clients may re-present a token to check it is still valid
			if claims, err := wc.auth.ValidateToken(msg.Token); err != nil {
				wc.security.LogFailedAuth(ip, "websocket auth message: "+err.Error())
				reply = &services.WebSocketMessage{Type: services.MessageAuthError, Error: "invalid token"}
			} else {
				reply = &services.WebSocketMessage{
					Type: services.MessageAuthSuccess,
					Data: gin.H{"client": claims.ClientName, "expires_at": claims.ExpiresAt.Time},
				}
			}

		default:
			reply = &services.WebSocketMessage{Type: services.MessageError, Error: "unknown message type"}
		}

		reply.Timestamp = time.Now()
		if !wc.hub.SendTo(client, *reply) {
			return
		}
	}
}

// writePump writes messages to the WebSocket client
func (wc *WebSocketController) writePump(client *services.ClientConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					wc.logger.Warn("websocket write failed", zap.String("client", client.ID), zap.Error(err))
				}
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleTokenStatus checks a token presented as a Bearer header or query parameter
func (wc *WebSocketController) HandleTokenStatus(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" || token == c.GetHeader("Authorization") {
		token = c.Query("token")
	}
	if token == "" {
		wc.security.LogFailedAuth(c.ClientIP(), "missing token in header or query")
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required in Authorization header or query parameter"})
		return
	}

	claims, err := wc.auth.ValidateToken(token)
	if err != nil {
		wc.security.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"client":     claims.ClientName,
		"expires_at": claims.ExpiresAt.Time,
		"issued_at":  claims.IssuedAt.Time,
	})
}
