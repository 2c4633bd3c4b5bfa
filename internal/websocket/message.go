package websocket

import (
	"encoding/json"
	"time"
)

const (
	EventUserConnected = "user-connected"
	EventPing          = "ping"
	EventPong          = "pong"
	EventError         = "error"
)

// Envelope is the JSON frame exchanged with clients in both directions.
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func encode(event string, data any) ([]byte, error) {
	env := Envelope{Event: event, Timestamp: time.Now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}
