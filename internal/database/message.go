package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/thereayou/workspace-relay/internal/models"
)

// AppendMessage inserts one finalized message.
func (d *Database) AppendMessage(ctx context.Context, message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	return d.db.WithContext(ctx).Create(message).Error
}

// ListPublicMessages returns the workspace-wide history of a workspace, oldest first.
func (d *Database) ListPublicMessages(ctx context.Context, workspaceID string) ([]models.Message, error) {
	var messages []models.Message
	err := d.db.WithContext(ctx).
		Where("ws_id = ? AND receiver_id = ?", workspaceID, models.WorkspaceReceiver).
		Order("sent_at ASC").
		Find(&messages).Error
	return messages, err
}

// ListPrivateMessages returns the conversation between two users in either
// direction, oldest first.
func (d *Database) ListPrivateMessages(ctx context.Context, workspaceID, userA, userB string) ([]models.Message, error) {
	var messages []models.Message
	err := d.db.WithContext(ctx).
		Where("ws_id = ?", workspaceID).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userA, userB, userB, userA).
		Order("sent_at ASC").
		Find(&messages).Error
	return messages, err
}
