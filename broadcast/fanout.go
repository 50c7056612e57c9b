package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/metrics"
	"github.com/poiesic/reelbot/storage"
	"github.com/poiesic/reelbot/transport"
)

const (
	defaultWorkers         = 8
	defaultDeliveryTimeout = 10 * time.Second
)

// Result is the outcome of one delivery.
type Result struct {
	Recipient core.UserID
	Err       error
}

// Delivered reports whether the recipient received the payload.
func (r Result) Delivered() bool {
	return r.Err == nil
}

// Tally counts delivery outcomes. Success + Failure equals the number of recipients.
type Tally struct {
	Success int
	Failure int
}

// Total returns the number of attempted deliveries.
func (t Tally) Total() int {
	return t.Success + t.Failure
}

// Fanout delivers payloads to many recipients concurrently.
type Fanout struct {
	transport transport.Transport
	pool      *ants.Pool
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Fanout.
type Option func(*Fanout) error

// WithWorkers sets the number of concurrent deliveries.
func WithWorkers(n int) Option {
	return func(f *Fanout) error {
		if n < 1 {
			n = 1
		}
		if f.pool != nil {
			f.pool.Release()
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		f.pool = pool
		return nil
	}
}

// WithDeliveryTimeout bounds each delivery attempt.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(f *Fanout) error {
		if d > 0 {
			f.timeout = d
		}
		return nil
	}
}

// WithMetrics records delivery counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fanout) error {
		f.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fanout) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
		return nil
	}
}

// New creates a Fanout over tr.
func New(tr transport.Transport, opts ...Option) (*Fanout, error) {
	if tr == nil {
		return nil, ErrTransportRequired
	}

	pool, err := ants.NewPool(defaultWorkers)
	if err != nil {
		return nil, err
	}

	f := &Fanout{
		transport: tr,
		pool:      pool,
		timeout:   defaultDeliveryTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(f); optErr != nil {
			f.Release()
			return nil, optErr
		}
	}
	return f, nil
}

// Release stops the worker pool. Pending deliveries finish first.
func (f *Fanout) Release() {
	if f.pool != nil {
		f.pool.Release()
	}
}

// Broadcast attempts delivery of payload to every recipient once.
// Returns an error only when the payload is invalid.
func (f *Fanout) Broadcast(ctx context.Context, payload Payload, recipients []core.UserID) (Tally, error) {
	results, err := f.Deliver(ctx, payload, recipients)
	if err != nil {
		return Tally{}, err
	}

	var tally Tally
	for _, r := range results {
		if r.Delivered() {
			tally.Success++
		} else {
			tally.Failure++
			f.logger.Debug("delivery failed", "recipient", r.Recipient, "error", r.Err)
		}
	}

	f.metrics.Delivered(payload.Kind(), tally.Success, tally.Failure)
	f.logger.Info("broadcast finished",
		"kind", payload.Kind(),
		"recipients", len(recipients),
		"success", tally.Success,
		"failure", tally.Failure)
	return tally, nil
}

// Deliver attempts delivery to every recipient and returns one Result per
// recipient, in recipient order.
func (f *Fanout) Deliver(ctx context.Context, payload Payload, recipients []core.UserID) ([]Result, error) {
	if payload == nil {
		return nil, ErrInvalidPayload
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	results := make([]Result, len(recipients))
	var wg sync.WaitGroup
	for i, recipient := range recipients {
		results[i].Recipient = recipient
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i].Err = f.deliverOne(ctx, payload, recipient)
		}
		if err := f.pool.Submit(task); err != nil {
			results[i].Err = fmt.Errorf("submit delivery: %w", err)
			wg.Done()
		}
	}
	wg.Wait()
	return results, nil
}

func (f *Fanout) deliverOne(ctx context.Context, payload Payload, recipient core.UserID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return payload.deliver(ctx, f.transport, core.ChatID(recipient))
}

// BroadcastToRegistry delivers payload to every registered user selected by
// filter. A nil filter selects everyone.
func (f *Fanout) BroadcastToRegistry(ctx context.Context, payload Payload, users storage.UserRepository, filter storage.UserFilter) (Tally, error) {
	if payload == nil {
		return Tally{}, ErrInvalidPayload
	}
	if err := payload.Validate(); err != nil {
		return Tally{}, err
	}
	recipients, err := users.ListUserIDs(ctx, filter)
	if err != nil {
		return Tally{}, err
	}
	return f.Broadcast(ctx, payload, recipients)
}
