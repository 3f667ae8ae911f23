package handler

import (
	"log/slog"
	"net/http"

	"empty-jar/internal/middleware"
	"empty-jar/internal/websocket"
	"empty-jar/pkg/jwt"
	"empty-jar/pkg/response"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

// WebSocketHandler upgrades authenticated clients onto the note change feed.
type WebSocketHandler struct {
	manager   *websocket.Manager
	jwtSecret string
	upgrader  ws.Upgrader
	logger    *slog.Logger
}

func NewWebSocketHandler(manager *websocket.Manager, jwtSecret string, readBuf, writeBuf int, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager:   manager,
		jwtSecret: jwtSecret,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBuf,
			WriteBufferSize: writeBuf,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r)
	}
	if token == "" {
		response.Unauthorized(w, "missing authorization token")
		return
	}

	claims, err := jwt.ValidateToken(token, h.jwtSecret)
	if err != nil || claims.TokenType != jwt.TokenTypeAccess {
		h.logger.Debug("websocket token rejected", "error", err)
		response.Unauthorized(w, "invalid token")
		return
	}

	device := r.URL.Query().Get("device_id")
	if device == "" {
		device = deviceID(r)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "user", claims.UserID, "error", err)
		return
	}

	client := websocket.NewClient(uuid.New().String(), claims.UserID, device, conn, h.manager)
	if !h.manager.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
