package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkspaceReceiver is the receiver id meaning "everyone in the workspace".
const WorkspaceReceiver = "workspace"

type Category string

const (
	CategoryText  Category = "text"
	CategoryImage Category = "image"
	CategoryVideo Category = "video"
	CategoryAudio Category = "audio"
)

// Message is a finalized, moderated chat message. Rows are never updated.
type Message struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceID string    `gorm:"column:ws_id;not null;index:idx_messages_ws_time,priority:1"`
	SenderID    string    `gorm:"not null;index"`
	ReceiverID  string    `gorm:"not null;index"`
	Content     string    `gorm:"column:message;type:text;not null"`
	Category    Category  `gorm:"column:message_type;not null;default:'text'"`
	Timestamp   time.Time `gorm:"column:sent_at;not null;index:idx_messages_ws_time,priority:2"`
}
