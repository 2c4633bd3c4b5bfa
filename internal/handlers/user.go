package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/workspace-relay/internal/database"
	"github.com/thereayou/workspace-relay/internal/middleware"
	ws "github.com/thereayou/workspace-relay/internal/websocket"
)

type UserHandler struct {
	db  *database.Database
	hub *ws.Hub
}

func NewUserHandler(db *database.Database, hub *ws.Hub) *UserHandler {
	return &UserHandler{db: db, hub: hub}
}

// GetMe returns the authenticated user.
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)

	user, err := h.db.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	_, online := h.hub.Lookup(userID)
	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"created_at":   user.CreatedAt,
		"last_seen_at": user.LastSeenAt,
		"online":       online,
	})
}

// Online lists users with a live connection.
func (h *UserHandler) Online(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.hub.Online()})
}
