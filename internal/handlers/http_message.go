package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/thereayou/workspace-relay/internal/handlers/dto"
	"github.com/thereayou/workspace-relay/internal/models"
)

type HistoryStore interface {
	ListPublicMessages(ctx context.Context, workspaceID string) ([]models.Message, error)
	ListPrivateMessages(ctx context.Context, workspaceID, userA, userB string) ([]models.Message, error)
}

// HTTPMessageHandler serves message history.
type HTTPMessageHandler struct {
	store HistoryStore
	log   zerolog.Logger
}

func NewHTTPMessageHandler(store HistoryStore, log zerolog.Logger) *HTTPMessageHandler {
	return &HTTPMessageHandler{store: store, log: log.With().Str("component", "history").Logger()}
}

// GetPublicMessages returns the workspace-wide history of a workspace.
func (h *HTTPMessageHandler) GetPublicMessages(c *gin.Context) {
	workspaceID := c.Query("workspaceId")
	if workspaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workspaceId is required"})
		return
	}

	messages, err := h.store.ListPublicMessages(c.Request.Context(), workspaceID)
	if err != nil {
		h.log.Error().Err(err).Str("workspace_id", workspaceID).Msg("failed to fetch public messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, dto.NewPublicMessages(messages))
}

// GetPrivateMessages returns the conversation between two users, oldest first.
func (h *HTTPMessageHandler) GetPrivateMessages(c *gin.Context) {
	workspaceID := c.Query("workspaceId")
	userA := c.Query("userId1")
	userB := c.Query("userId2")
	if workspaceID == "" || userA == "" || userB == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workspaceId, userId1 and userId2 are required"})
		return
	}

	messages, err := h.store.ListPrivateMessages(c.Request.Context(), workspaceID, userA, userB)
	if err != nil {
		h.log.Error().Err(err).Str("workspace_id", workspaceID).Msg("failed to fetch private messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, dto.NewPrivateMessages(messages))
}
