package pipeline

import (
	"time"

	"github.com/thereayou/workspace-relay/internal/models"
)

type Route string

const (
	RoutePublic  Route = "public-message"
	RoutePrivate Route = "private-message"
)

// ParseRoute maps an inbound event name to its route.
func ParseRoute(event string) (Route, bool) {
	switch Route(event) {
	case RoutePublic, RoutePrivate:
		return Route(event), true
	}
	return "", false
}

// Event is the name the finalized message is re-emitted under.
func (r Route) Event() string { return string(r) }

// Incoming is the payload of a public-message or private-message event.
type Incoming struct {
	WorkspaceID string `json:"workspaceId" validate:"required"`
	SenderID    string `json:"senderId" validate:"required"`
	ReceiverID  string `json:"receiverId" validate:"required"`
	Message     string `json:"message" validate:"required"`
	MessageType string `json:"MessageType,omitempty"`
}

// Broadcast is the payload delivered to clients. ReceiverID and MessageType
// are only set for file messages.
type Broadcast struct {
	Sender      string    `json:"sender"`
	ReceiverID  string    `json:"receiverId,omitempty"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"Timestamp"`
	MessageType string    `json:"MessageType,omitempty"`
}

const (
	NoticeText  = "This message was flagged as inappropriate"
	NoticeImage = "This image was flagged as inappropriate"
	NoticeVideo = "This video was flagged as inappropriate"
	NoticeAudio = "This audio was flagged as inappropriate"
)

// Notice returns the replacement text for a flagged message of category c.
func Notice(c models.Category) string {
	switch c {
	case models.CategoryImage:
		return NoticeImage
	case models.CategoryVideo:
		return NoticeVideo
	case models.CategoryAudio:
		return NoticeAudio
	default:
		return NoticeText
	}
}
