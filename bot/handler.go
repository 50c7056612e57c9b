package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/reelbot/broadcast"
	"github.com/poiesic/reelbot/config"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/escalation"
	"github.com/poiesic/reelbot/ingestion"
	"github.com/poiesic/reelbot/metrics"
	"github.com/poiesic/reelbot/relay"
	"github.com/poiesic/reelbot/search"
	"github.com/poiesic/reelbot/storage"
	"github.com/poiesic/reelbot/transport"
)

// ErrMissingDependency is returned when a required component is not provided.
var ErrMissingDependency = errors.New("missing handler dependency")

// Deps are the components a Handler routes events to.
type Deps struct {
	Transport   transport.Transport
	Indexer     *ingestion.Indexer
	Resolver    *search.Resolver
	Relayer     *relay.Relayer
	Escalation  *escalation.Workflow
	Fanout      *broadcast.Fanout
	Catalog     storage.CatalogRepository
	Users       storage.UserRepository
	Escalations storage.EscalationRepository
	Settings    storage.SettingsRepository
	Feedback    storage.FeedbackRepository
}

func (d Deps) validate() error {
	switch {
	case d.Transport == nil:
		return missing("transport")
	case d.Indexer == nil:
		return missing("indexer")
	case d.Resolver == nil:
		return missing("resolver")
	case d.Relayer == nil:
		return missing("relayer")
	case d.Escalation == nil:
		return missing("escalation workflow")
	case d.Fanout == nil:
		return missing("fanout")
	case d.Catalog == nil, d.Users == nil, d.Escalations == nil, d.Settings == nil, d.Feedback == nil:
		return missing("repositories")
	}
	return nil
}

func missing(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingDependency, name)
}

// Handler implements transport.Handler.
type Handler struct {
	Deps
	source        core.ChatID
	operators     []core.UserID
	mode          config.MatchMode
	relayInterval time.Duration
	start         config.StartConfig
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

var _ transport.Handler = (*Handler)(nil)

// Option configures a Handler.
type Option func(*Handler)

// WithMatchMode sets how matches are presented.
// Default is config.MatchAuto.
func WithMatchMode(mode config.MatchMode) Option {
	return func(h *Handler) {
		if mode.Valid() {
			h.mode = mode
		}
	}
}

// WithRelayInterval sets the pause between relays in config.MatchAll mode.
func WithRelayInterval(d time.Duration) Option {
	return func(h *Handler) {
		if d >= 0 {
			h.relayInterval = d
		}
	}
}

// WithStartScreen sets the picture and links shown by /start.
func WithStartScreen(start config.StartConfig) Option {
	return func(h *Handler) {
		h.start = start
	}
}

// WithMetrics records recovered panics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger
	}
}

// New creates a Handler for posts of source, with operators allowed to run
// admin commands.
func New(deps Deps, source core.ChatID, operators []core.UserID, opts ...Option) (*Handler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	h := &Handler{
		Deps:          deps,
		source:        source,
		operators:     slices.Clone(operators),
		mode:          config.MatchAuto,
		relayInterval: 700 * time.Millisecond,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// IsOperator reports whether user may run admin commands.
func (h *Handler) IsOperator(user core.UserID) bool {
	return slices.Contains(h.operators, user)
}

// HandlePost indexes posts published to the source channel.
func (h *Handler) HandlePost(ctx context.Context, post transport.PostReceived) {
	defer h.guard(ctx, 0, "post")

	if post.SourceChannel != h.source {
		h.logger.Debug("ignoring post from foreign channel", "channel", post.SourceChannel, "post", post.ID)
		return
	}
	if _, err := h.Indexer.Ingest(ctx, post); err != nil {
		h.logger.Error("error indexing post", "post", post.ID, "err", err)
	}
}

// HandleText runs commands, operator forwards and queries.
func (h *Handler) HandleText(ctx context.Context, msg transport.TextReceived) {
	defer h.guard(ctx, msg.ChatID, "text")

	if cmd, ok := parseCommand(msg.Text); ok {
		h.runCommand(ctx, msg, cmd)
		return
	}
	if msg.Forward != nil && h.IsOperator(msg.SenderID) {
		h.indexForward(ctx, msg)
		return
	}
	h.query(ctx, msg)
}

// HandleChoice routes inline choice presses.
func (h *Handler) HandleChoice(ctx context.Context, choice transport.ChoiceSelected) {
	defer h.guard(ctx, 0, "choice")

	switch p := parsePayload(choice.Payload); p.kind {
	case payloadMovie:
		h.selectMovie(ctx, choice, p.id)
	case payloadLanguage:
		h.filterLanguage(ctx, choice, p.language, p.query)
	case payloadEscalation:
		if err := h.Escalation.HandleChoice(ctx, choice); err != nil {
			h.logger.Warn("error answering escalation choice", "err", err)
		}
	default:
		h.answer(ctx, choice.CallbackID, "")
	}
}

// guard recovers a panicking handler and apologizes to chat when known.
func (h *Handler) guard(ctx context.Context, chat core.ChatID, event string) {
	r := recover()
	if r == nil {
		return
	}
	h.metrics.Panicked()
	h.logger.Error("handler panicked", "event", event, "panic", r)
	if chat != 0 {
		h.reply(ctx, chat, msgInternalError, nil)
	}
}

func (h *Handler) reply(ctx context.Context, chat core.ChatID, text string, keyboard transport.Keyboard) {
	if _, err := h.Transport.SendText(ctx, chat, text, keyboard); err != nil {
		h.logger.Warn("could not send reply", "chat", chat, "err", err)
	}
}

func (h *Handler) answer(ctx context.Context, callbackID, text string) {
	if err := h.Transport.AnswerChoice(ctx, callbackID, text); err != nil {
		h.logger.Debug("could not answer choice", "err", err)
	}
}
