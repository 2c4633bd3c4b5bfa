package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thereayou/workspace-relay/internal/config"
	"github.com/thereayou/workspace-relay/internal/metrics"
	"github.com/thereayou/workspace-relay/internal/models"
	"github.com/thereayou/workspace-relay/internal/moderation"
	"github.com/thereayou/workspace-relay/internal/storage"
)

var ErrMalformedMessage = errors.New("malformed message")

type MessageStore interface {
	AppendMessage(ctx context.Context, message *models.Message) error
}

type Moderator interface {
	CheckText(ctx context.Context, text string) (moderation.Verdict, error)
	CheckMedia(ctx context.Context, media io.Reader, filename string, kind moderation.MediaKind) (moderation.Verdict, error)
}

type MediaSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Fanout delivers a finalized payload to connected clients.
type Fanout interface {
	EmitAll(event string, payload any)
	EmitTo(userIDs []string, event string, payload any)
}

// Outcome describes what the pipeline did with one message.
type Outcome struct {
	Message          models.Message
	Payload          Broadcast
	Verdict          moderation.Verdict
	ModerationFailed bool
	Persisted        bool

	// Unmoderated is set for file kinds the provider cannot check.
	Unmoderated bool
}

type Pipeline struct {
	store     MessageStore
	moderator Moderator
	media     MediaSource
	fanout    Fanout
	failOpen  bool
	skipOpen  bool
	validate  *validator.Validate
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the finalization clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithFailurePolicy sets what happens when moderation is unavailable:
// config.FailOpen passes the message through, anything else redacts it.
func WithFailurePolicy(policy string) Option {
	return func(p *Pipeline) { p.failOpen = policy == config.FailOpen }
}

// WithUnsupportedMediaPolicy decides files the provider has no endpoint for
// (audio and unknown types): config.FailOpen delivers them unchecked,
// anything else redacts them.
func WithUnsupportedMediaPolicy(policy string) Option {
	return func(p *Pipeline) { p.skipOpen = policy == config.FailOpen }
}

func New(store MessageStore, moderator Moderator, media MediaSource, fanout Fanout, log zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		moderator: moderator,
		media:     media,
		fanout:    fanout,
		skipOpen:  true,
		validate:  validator.New(),
		now:       time.Now,
		log:       log.With().Str("component", "pipeline").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) policyName() string {
	if p.failOpen {
		return config.FailOpen
	}
	return config.FailClosed
}

// Handle runs one message through classify, moderate, finalize, persist and
// broadcast. Malformed messages return ErrMalformedMessage and touch nothing.
// A failed insert is logged and the message is still broadcast.
func (p *Pipeline) Handle(ctx context.Context, route Route, in Incoming) (*Outcome, error) {
	log := p.log.With().
		Str("route", string(route)).
		Str("workspace_id", in.WorkspaceID).
		Str("sender_id", in.SenderID).
		Logger()

	if err := p.validate.Struct(in); err != nil {
		metrics.MessagesMalformed.WithLabelValues(string(route)).Inc()
		log.Warn().Err(err).Msg("dropping malformed message")
		return nil, fmt.Errorf("%w: %s", ErrMalformedMessage, missingFields(err))
	}

	class := Classify(in.MessageType)

	out := &Outcome{}
	var modErr error
	if class.FileRoute && !providerChecks(class.Category) {
		out.Unmoderated = true
		out.Verdict = moderation.Verdict{Flagged: !p.skipOpen}
		metrics.MessagesUnmoderated.WithLabelValues(string(class.Category)).Inc()
		log.Debug().Str("type", in.MessageType).Bool("delivered", p.skipOpen).Msg("no moderation endpoint for file type")
	} else {
		out.Verdict, modErr = p.moderate(ctx, class, in)
	}
	verdict := out.Verdict
	flagged := verdict.Flagged
	if modErr != nil {
		out.ModerationFailed = true
		flagged = !p.failOpen
		kind := "text"
		if class.FileRoute {
			kind = string(class.Category)
		}
		metrics.ModerationFailures.WithLabelValues(kind, p.policyName()).Inc()
		log.Error().Err(modErr).Str("policy", p.policyName()).Msg("moderation unavailable")
	}

	// finalize
	content, category := in.Message, class.Category
	declared := in.MessageType
	if flagged {
		content = Notice(class.Category)
		category = models.CategoryText
		declared = string(models.CategoryText)
		metrics.MessagesFlagged.WithLabelValues(string(class.Category)).Inc()
		log.Info().Interface("reasons", verdict.Reasons).Msg("message flagged")
	}

	out.Message = models.Message{
		ID:          uuid.New(),
		WorkspaceID: in.WorkspaceID,
		SenderID:    in.SenderID,
		ReceiverID:  in.ReceiverID,
		Content:     content,
		Category:    category,
		Timestamp:   p.now().UTC(),
	}

	out.Payload = Broadcast{
		Sender:    in.SenderID,
		Message:   content,
		Timestamp: out.Message.Timestamp,
	}
	if class.FileRoute {
		out.Payload.ReceiverID = in.ReceiverID
		out.Payload.MessageType = declared
	}

	persisted := out.Message
	if err := p.store.AppendMessage(ctx, &persisted); err != nil {
		metrics.PersistenceFailures.Inc()
		log.Error().Err(err).Msg("failed to persist message, broadcasting anyway")
	} else {
		out.Persisted = true
	}

	p.broadcast(route, in, out.Payload)
	metrics.MessagesIngested.WithLabelValues(string(route), string(category)).Inc()

	return out, nil
}

func (p *Pipeline) moderate(ctx context.Context, class Classification, in Incoming) (moderation.Verdict, error) {
	if !class.FileRoute {
		return p.moderator.CheckText(ctx, in.Message)
	}

	name := storage.NameFromReference(in.Message)
	f, err := p.media.Open(ctx, name)
	if err != nil {
		return moderation.Verdict{}, fmt.Errorf("%w: open %s: %v", moderation.ErrModerationUnavailable, name, err)
	}
	defer f.Close()

	kind := moderation.MediaVideo
	if class.Category == models.CategoryImage {
		kind = moderation.MediaImage
	}
	return p.moderator.CheckMedia(ctx, f, name, kind)
}

func providerChecks(category models.Category) bool {
	return category == models.CategoryImage || category == models.CategoryVideo
}

func (p *Pipeline) broadcast(route Route, in Incoming, payload Broadcast) {
	if route == RoutePrivate {
		recipients := []string{in.SenderID}
		if in.ReceiverID != in.SenderID {
			recipients = append(recipients, in.ReceiverID)
		}
		p.fanout.EmitTo(recipients, route.Event(), payload)
		return
	}
	p.fanout.EmitAll(route.Event(), payload)
}

func missingFields(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}
	return "missing " + strings.Join(names, ", ")
}
