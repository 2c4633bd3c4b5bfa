package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/thereayou/workspace-relay/internal/metrics"
	"github.com/thereayou/workspace-relay/internal/pipeline"
	"github.com/thereayou/workspace-relay/internal/websocket"
)

type Ingestor interface {
	Handle(ctx context.Context, route pipeline.Route, in pipeline.Incoming) (*pipeline.Outcome, error)
}

// MessageHandler turns inbound websocket events into pipeline runs. Each
// message is processed on its own goroutine so a slow moderation call never
// stalls the sender's read loop or other messages.
type MessageHandler struct {
	ingest          Ingestor
	enforceIdentity bool

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup

	log zerolog.Logger
}

// NewMessageHandler builds the dispatcher. Pipeline runs inherit ctx; with
// enforceIdentity the senderId of a message must match the connection.
func NewMessageHandler(ctx context.Context, ingest Ingestor, enforceIdentity bool, log zerolog.Logger) *MessageHandler {
	runCtx, cancel := context.WithCancel(ctx)
	return &MessageHandler{
		ingest:          ingest,
		enforceIdentity: enforceIdentity,
		ctx:             runCtx,
		cancel:          cancel,
		log:             log.With().Str("component", "dispatcher").Logger(),
	}
}

func (h *MessageHandler) HandleMessage(client *websocket.Client, env *websocket.Envelope) error {
	route, ok := pipeline.ParseRoute(env.Event)
	if !ok {
		h.log.Debug().Str("event", env.Event).Str("user_id", client.UserID).Msg("ignoring unknown event")
		return nil
	}

	var in pipeline.Incoming
	if len(env.Data) == 0 {
		return websocket.ErrInvalidMessage
	}
	if err := json.Unmarshal(env.Data, &in); err != nil {
		return websocket.ErrInvalidMessage
	}

	if h.enforceIdentity && in.SenderID != client.UserID {
		metrics.MessagesMalformed.WithLabelValues(string(route)).Inc()
		h.log.Warn().
			Str("user_id", client.UserID).
			Str("sender_id", in.SenderID).
			Msg("rejecting message with spoofed sender")
		return websocket.ErrInvalidMessage
	}

	h.mu.Lock()
	if h.draining {
		h.mu.Unlock()
		h.log.Debug().Str("user_id", client.UserID).Msg("dropping message received during shutdown")
		return nil
	}
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		// pipeline errors are logged inside the pipeline and never echoed back
		_, _ = h.ingest.Handle(h.ctx, route, in)
	}()
	return nil
}

// Wait blocks until every in-flight message has finished.
func (h *MessageHandler) Wait() {
	h.wg.Wait()
}

// Drain stops accepting messages and lets in-flight ones finish. When ctx
// expires first the remaining runs are cancelled and ctx.Err is returned.
func (h *MessageHandler) Drain(ctx context.Context) error {
	h.mu.Lock()
	h.draining = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.cancel()
		return nil
	case <-ctx.Done():
		h.cancel()
		<-done
		return ctx.Err()
	}
}
