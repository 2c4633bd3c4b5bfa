package dto

import (
	"time"

	"github.com/thereayou/workspace-relay/internal/models"
)

// PublicMessage is one row of workspace-wide history.
type PublicMessage struct {
	SenderID    string          `json:"SenderId"`
	Message     string          `json:"message"`
	Timestamp   time.Time       `json:"Timestamp"`
	MessageType models.Category `json:"MessageType"`
}

// PrivateMessage is one row of a 1:1 conversation.
type PrivateMessage struct {
	SenderID    string          `json:"SenderId"`
	ReceiverID  string          `json:"ReceiverId"`
	Message     string          `json:"message"`
	Timestamp   time.Time       `json:"Timestamp"`
	MessageType models.Category `json:"MessageType"`
}

type UploadResponse struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

func NewPublicMessages(rows []models.Message) []PublicMessage {
	out := make([]PublicMessage, len(rows))
	for i, m := range rows {
		out[i] = PublicMessage{
			SenderID:    m.SenderID,
			Message:     m.Content,
			Timestamp:   m.Timestamp,
			MessageType: m.Category,
		}
	}
	return out
}

func NewPrivateMessages(rows []models.Message) []PrivateMessage {
	out := make([]PrivateMessage, len(rows))
	for i, m := range rows {
		out[i] = PrivateMessage{
			SenderID:    m.SenderID,
			ReceiverID:  m.ReceiverID,
			Message:     m.Content,
			Timestamp:   m.Timestamp,
			MessageType: m.Category,
		}
	}
	return out
}
