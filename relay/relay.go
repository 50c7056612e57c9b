// Package relay forwards catalog posts to users and retracts the copies later.
//
// A relayed copy lives for the retraction delay. The retraction is scheduled
// on a timer, runs on a worker pool and is never awaited by the caller; once
// scheduled it cannot be cancelled. A failed retraction (message already
// deleted by the user, chat gone) is logged and counted, nothing more.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/metrics"
	"github.com/poiesic/reelbot/transport"
)

const (
	defaultRetractionDelay   = 600 * time.Second
	defaultWorkers           = 8
	defaultRetractionTimeout = 30 * time.Second
)

// Handle identifies a relayed copy and when it will be retracted.
type Handle struct {
	Record    core.PostID
	Chat      core.ChatID
	Message   core.MessageID
	RetractAt time.Time
}

// Relayer forwards source channel posts and schedules their retraction.
type Relayer struct {
	transport transport.Transport
	source    core.ChatID
	delay     time.Duration
	pool      *ants.Pool
	pending   atomic.Int64
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Relayer.
type Option func(*Relayer) error

// WithRetractionDelay sets how long a relayed copy lives.
// Default is 600 seconds.
func WithRetractionDelay(d time.Duration) Option {
	return func(r *Relayer) error {
		if d > 0 {
			r.delay = d
		}
		return nil
	}
}

// WithWorkers sets the size of the retraction worker pool.
func WithWorkers(n int) Option {
	return func(r *Relayer) error {
		if n < 1 {
			n = 1
		}
		if r.pool != nil {
			r.pool.Release()
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		r.pool = pool
		return nil
	}
}

// WithMetrics records relay and retraction counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relayer) error {
		r.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relayer) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// New creates a Relayer forwarding posts from source.
func New(tr transport.Transport, source core.ChatID, opts ...Option) (*Relayer, error) {
	if tr == nil {
		return nil, ErrTransportRequired
	}
	if source == 0 {
		return nil, ErrSourceRequired
	}

	pool, err := ants.NewPool(defaultWorkers)
	if err != nil {
		return nil, err
	}

	r := &Relayer{
		transport: tr,
		source:    source,
		delay:     defaultRetractionDelay,
		pool:      pool,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(r); optErr != nil {
			r.Release()
			return nil, optErr
		}
	}
	return r, nil
}

// Release stops the retraction pool. Retractions still waiting on their
// timer are dropped.
func (r *Relayer) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// Pending returns how many retractions are scheduled but not finished.
func (r *Relayer) Pending() int {
	return int(r.pending.Load())
}

// RetractionDelay returns the configured lifetime of a relayed copy.
func (r *Relayer) RetractionDelay() time.Duration {
	return r.delay
}

// Relay forwards the post of rec to dest and schedules its retraction.
// On failure nothing is scheduled and the error wraps ErrRelayFailed.
func (r *Relayer) Relay(ctx context.Context, rec *core.CatalogRecord, dest core.ChatID) (*Handle, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: no record", ErrRelayFailed)
	}

	msgID, err := r.transport.ForwardMessage(ctx, dest, r.source, core.MessageID(rec.ID))
	if err != nil {
		r.metrics.Relayed(false)
		r.logger.Warn("relay failed", "record", rec.ID, "destination", dest, "error", err)
		return nil, fmt.Errorf("%w: post %d: %w", ErrRelayFailed, rec.ID, err)
	}
	r.metrics.Relayed(true)

	handle := &Handle{
		Record:    rec.ID,
		Chat:      dest,
		Message:   msgID,
		RetractAt: time.Now().Add(r.delay),
	}
	r.schedule(handle)
	return handle, nil
}

func (r *Relayer) schedule(h *Handle) {
	r.pending.Add(1)
	time.AfterFunc(r.delay, func() {
		if err := r.pool.Submit(func() { r.retract(h) }); err != nil {
			r.pending.Add(-1)
			r.metrics.Retracted(false)
			r.logger.Debug("retraction dropped", "chat", h.Chat, "message", h.Message, "error", err)
		}
	})
}

func (r *Relayer) retract(h *Handle) {
	defer r.pending.Add(-1)

	ctx, cancel := context.WithTimeout(context.Background(), defaultRetractionTimeout)
	defer cancel()

	if err := r.transport.DeleteMessage(ctx, h.Chat, h.Message); err != nil {
		r.metrics.Retracted(false)
		r.logger.Debug("retraction failed", "chat", h.Chat, "message", h.Message, "error", err)
		return
	}
	r.metrics.Retracted(true)
	r.logger.Debug("retracted relayed post", "record", h.Record, "chat", h.Chat)
}
