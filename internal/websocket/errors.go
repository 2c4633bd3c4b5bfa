package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrInvalidMessage  = errors.New("invalid message format")
	ErrClientClosed    = errors.New("client connection closed")
	ErrHubStopped      = errors.New("hub stopped")
)
