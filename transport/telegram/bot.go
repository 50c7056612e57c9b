package telegram

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/transport"
)

const (
	defaultMaxAttempts = 4
	defaultBaseDelay   = 500 * time.Millisecond
	defaultPollTimeout = 60
	defaultWorkers     = 16

	defaultRequestTimeout = 30 * time.Second
	defaultDrainTimeout   = 15 * time.Second
	// pollGrace is added to the long-poll timeout for the polling client.
	pollGrace = 15 * time.Second
)

// Bot is a transport.Transport backed by the Telegram Bot API.
type Bot struct {
	api            *tgbotapi.BotAPI // long polling
	sender         *tgbotapi.BotAPI // every other request
	endpoint       string
	maxAttempts    int
	baseDelay      time.Duration
	pollTimeout    int
	requestTimeout time.Duration
	drainTimeout   time.Duration
	workers        int
	logger         *slog.Logger
}

var _ transport.Transport = (*Bot)(nil)

// Option configures a Bot.
type Option func(*Bot)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
	}
}

// WithRetry sets how often flood-controlled sends are attempted and the
// base backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(b *Bot) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		b.maxAttempts = maxAttempts
		b.baseDelay = baseDelay
	}
}

// WithPollTimeout sets the long-polling timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(b *Bot) {
		b.pollTimeout = seconds
	}
}

// WithWorkers sets the number of goroutines handling private messages and
// button presses.
func WithWorkers(n int) Option {
	return func(b *Bot) {
		if n < 1 {
			n = 1
		}
		b.workers = n
	}
}

// WithRequestTimeout bounds every outbound request at the HTTP client.
// Callers may give up earlier through their context.
// Default is 30s.
func WithRequestTimeout(d time.Duration) Option {
	return func(b *Bot) {
		if d > 0 {
			b.requestTimeout = d
		}
	}
}

// WithDrainTimeout sets how long Run waits for in-flight handlers after
// its context is cancelled.
// Default is 15s.
func WithDrainTimeout(d time.Duration) Option {
	return func(b *Bot) {
		if d > 0 {
			b.drainTimeout = d
		}
	}
}

// WithEndpoint overrides the Bot API endpoint format string,
// e.g. "http://localhost:8081/bot%s/%s".
func WithEndpoint(endpoint string) Option {
	return func(b *Bot) {
		b.endpoint = endpoint
	}
}

// New connects to the Bot API with the given token.
func New(token string, opts ...Option) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenRequired
	}

	b := &Bot{
		endpoint:       tgbotapi.APIEndpoint,
		maxAttempts:    defaultMaxAttempts,
		baseDelay:      defaultBaseDelay,
		pollTimeout:    defaultPollTimeout,
		requestTimeout: defaultRequestTimeout,
		drainTimeout:   defaultDrainTimeout,
		workers:        defaultWorkers,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}

	sender, err := tgbotapi.NewBotAPIWithClient(token, b.endpoint, &http.Client{Timeout: b.requestTimeout})
	if err != nil {
		return nil, err
	}
	// The polling client must outlive a full long poll.
	poller := *sender
	poller.Client = &http.Client{Timeout: time.Duration(b.pollTimeout)*time.Second + pollGrace}

	b.sender = sender
	b.api = &poller
	b.logger.Info("connected to telegram", "username", sender.Self.UserName)
	return b, nil
}

// Username returns the bot's own username.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// withContext runs call and returns early when ctx is done. The abandoned
// call still ends at the client's request timeout.
func withContext[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.value, r.err
	}
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	var msg tgbotapi.Message
	err := RetryWithBackoff(ctx, func() error {
		var err error
		msg, err = withContext(ctx, func() (tgbotapi.Message, error) {
			return b.sender.Send(c)
		})
		return err
	}, b.maxAttempts, b.baseDelay)
	return msg, err
}

func (b *Bot) request(ctx context.Context, c tgbotapi.Chattable) error {
	return RetryWithBackoff(ctx, func() error {
		_, err := withContext(ctx, func() (*tgbotapi.APIResponse, error) {
			return b.sender.Request(c)
		})
		return err
	}, b.maxAttempts, b.baseDelay)
}

// SendText sends a text message with an optional keyboard.
func (b *Bot) SendText(ctx context.Context, chat core.ChatID, text string, keyboard transport.Keyboard) (core.MessageID, error) {
	cfg := tgbotapi.NewMessage(int64(chat), text)
	if markup, ok := inlineMarkup(keyboard); ok {
		cfg.ReplyMarkup = markup
	}
	msg, err := b.send(ctx, cfg)
	if err != nil {
		return 0, err
	}
	return core.MessageID(msg.MessageID), nil
}

// SendPhoto sends a picture by URL or file ID.
func (b *Bot) SendPhoto(ctx context.Context, chat core.ChatID, photo, caption string, keyboard transport.Keyboard) (core.MessageID, error) {
	cfg := tgbotapi.NewPhoto(int64(chat), photoFile(photo))
	cfg.Caption = caption
	if markup, ok := inlineMarkup(keyboard); ok {
		cfg.ReplyMarkup = markup
	}
	msg, err := b.send(ctx, cfg)
	if err != nil {
		return 0, err
	}
	return core.MessageID(msg.MessageID), nil
}

// ForwardMessage forwards a message with its origin attribution.
func (b *Bot) ForwardMessage(ctx context.Context, to, from core.ChatID, message core.MessageID) (core.MessageID, error) {
	msg, err := b.send(ctx, tgbotapi.NewForward(int64(to), int64(from), int(message)))
	if err != nil {
		return 0, err
	}
	return core.MessageID(msg.MessageID), nil
}

// CopyMessage re-sends a message without attribution.
func (b *Bot) CopyMessage(ctx context.Context, to, from core.ChatID, message core.MessageID) (core.MessageID, error) {
	var id tgbotapi.MessageID
	err := RetryWithBackoff(ctx, func() error {
		var err error
		id, err = withContext(ctx, func() (tgbotapi.MessageID, error) {
			return b.sender.CopyMessage(tgbotapi.NewCopyMessage(int64(to), int64(from), int(message)))
		})
		return err
	}, b.maxAttempts, b.baseDelay)
	if err != nil {
		return 0, err
	}
	return core.MessageID(id.MessageID), nil
}

// DeleteMessage removes a message.
func (b *Bot) DeleteMessage(ctx context.Context, chat core.ChatID, message core.MessageID) error {
	return b.request(ctx, tgbotapi.NewDeleteMessage(int64(chat), int(message)))
}

// AnswerChoice acknowledges a button press.
func (b *Bot) AnswerChoice(ctx context.Context, callbackID, text string) error {
	return b.request(ctx, tgbotapi.NewCallback(callbackID, text))
}

// Run polls for updates and dispatches them to h until ctx is cancelled.
// Handlers already running are given the drain timeout to finish before Run
// returns, and their context is not cancelled with ctx.
func (b *Bot) Run(ctx context.Context, h transport.Handler) error {
	pool, err := ants.NewPool(b.workers)
	if err != nil {
		return err
	}
	defer func() {
		if err := pool.ReleaseTimeout(b.drainTimeout); err != nil {
			b.logger.Warn("handlers still running after drain timeout", "running", pool.Running(), "error", err)
		}
	}()
	handlerCtx := context.WithoutCancel(ctx)

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(cfg)
	defer b.api.StopReceivingUpdates()

	b.logger.Info("polling for updates", "workers", b.workers)
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("update loop stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(handlerCtx, pool, h, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, pool *ants.Pool, h transport.Handler, update tgbotapi.Update) {
	switch {
	case update.ChannelPost != nil:
		h.HandlePost(ctx, PostFromMessage(update.ChannelPost))
	case update.Message != nil:
		msg := TextFromMessage(update.Message)
		b.submit(pool, func() { h.HandleText(ctx, msg) })
	case update.CallbackQuery != nil:
		choice := ChoiceFromCallback(update.CallbackQuery)
		b.submit(pool, func() { h.HandleChoice(ctx, choice) })
	}
}

// submit runs task on the pool, or inline when the pool refuses it.
func (b *Bot) submit(pool *ants.Pool, task func()) {
	if err := pool.Submit(task); err != nil {
		b.logger.Warn("worker pool refused update, handling inline", "error", err)
		task()
	}
}
