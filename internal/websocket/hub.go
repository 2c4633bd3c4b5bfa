package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/thereayou/workspace-relay/internal/metrics"
)

const pingInterval = 30 * time.Second

// Hub is the presence directory and broadcast fan-out. It owns the mapping
// from user id to the single live connection of that user; a reconnect with
// the same id replaces and closes the previous connection.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	log zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		log:        log.With().Str("component", "hub").Logger(),
	}
}

// Run processes registrations until Stop is called.
func (h *Hub) Run() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ticker.C:
			h.EmitAll(EventPing, nil)
		}
	}
}

// Stop closes every connection and ends Run.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, client := range h.clients {
		client.closeSend()
		if client.Conn != nil {
			client.Conn.Close()
		}
		delete(h.clients, userID)
	}
	metrics.ConnectedClients.Set(0)
}

func (h *Hub) Register(client *Client) error {
	if h.ctx.Err() != nil {
		return ErrHubStopped
	}
	select {
	case h.register <- client:
		return nil
	case <-h.ctx.Done():
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		client.closeSend()
		return
	}

	if prev, ok := h.clients[client.UserID]; ok && prev != client {
		prev.closeSend()
		h.log.Info().
			Str("user_id", client.UserID).
			Str("replaced_client", prev.ID.String()).
			Msg("connection replaced by reconnect")
	}
	h.clients[client.UserID] = client
	metrics.ConnectedClients.Set(float64(len(h.clients)))

	h.log.Info().Str("client_id", client.ID.String()).Str("user_id", client.UserID).Msg("client registered")

	if err := client.SendEvent(EventUserConnected, client.UserID); err != nil {
		h.log.Warn().Err(err).Str("user_id", client.UserID).Msg("failed to greet client")
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// a stale connection that was already replaced must not evict its successor
	if current, ok := h.clients[client.UserID]; ok && current == client {
		delete(h.clients, client.UserID)
		client.closeSend()
		metrics.ConnectedClients.Set(float64(len(h.clients)))
		h.log.Info().Str("client_id", client.ID.String()).Str("user_id", client.UserID).Msg("client unregistered")
	}
}

// Lookup returns the live connection of a user.
func (h *Hub) Lookup(userID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[userID]
	return c, ok
}

// Online returns the ids of connected users, sorted.
func (h *Hub) Online() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

// EmitAll delivers an event to every connected client.
func (h *Hub) EmitAll(event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		h.deliver(client, data)
	}
}

// EmitTo delivers an event to the listed users that are currently connected.
func (h *Hub) EmitTo(userIDs []string, event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range userIDs {
		if client, ok := h.clients[userID]; ok {
			h.deliver(client, data)
		}
	}
}

func (h *Hub) deliver(client *Client, data []byte) {
	if err := client.enqueue(data); err != nil {
		metrics.DroppedFrames.Inc()
		h.log.Warn().Err(err).Str("client_id", client.ID.String()).Msg("dropping frame")
	}
}
