package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/thereayou/workspace-relay/internal/middleware"
	ws "github.com/thereayou/workspace-relay/internal/websocket"
)

// WebSocketHandler upgrades connections and attaches them to the hub.
type WebSocketHandler struct {
	hub            *ws.Hub
	messageHandler *MessageHandler
	upgrader       websocket.Upgrader
	log            zerolog.Logger
}

func NewWebSocketHandler(hub *ws.Hub, messageHandler *MessageHandler, allowedOrigin string, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		messageHandler: messageHandler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
		log: log.With().Str("component", "websocket").Logger(),
	}
}

// HandleWebSocket identifies the user by the authenticated token subject
// when auth is on, or by the userId query parameter otherwise.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		userID = c.Query("userId")
	}
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, userID)
	if err := h.hub.Register(client); err != nil {
		conn.Close()
		return
	}
	h.log.Info().Str("user_id", userID).Str("client_id", client.ID.String()).Msg("user connected")

	go client.WritePump()
	go client.ReadPump(h.messageHandler)
}
