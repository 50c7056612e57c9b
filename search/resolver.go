package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/metrics"
	"github.com/poiesic/reelbot/storage"
)

const defaultResultLimit = 10

// Outcome is the result kind of a resolution.
type Outcome int

const (
	// OutcomeMatched means at least one record matched.
	OutcomeMatched Outcome = iota
	// OutcomeUnmatched means nothing matched and the query was escalated.
	OutcomeUnmatched
)

func (o Outcome) String() string {
	if o == OutcomeMatched {
		return "matched"
	}
	return "unmatched"
}

// Requester identifies who asked.
type Requester struct {
	ID          core.UserID
	DisplayName string
	ChatID      core.ChatID
}

// Resolution is the answer to a query.
type Resolution struct {
	Outcome Outcome
	Query   string // the trimmed query
	Records []*core.CatalogRecord

	// Escalation is the updated log entry for an unmatched query. It is nil
	// when recording failed.
	Escalation *core.EscalationEntry
}

// Escalator receives unmatched queries.
type Escalator interface {
	Escalate(ctx context.Context, query string, user core.UserID, displayName string) (*core.EscalationEntry, error)
}

// Resolver answers queries from the catalog.
type Resolver struct {
	catalog   storage.CatalogRepository
	users     storage.UserRepository
	escalator Escalator
	limit     int
	now       func() time.Time
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithResultLimit caps how many records a resolution returns.
// Default is 10.
func WithResultLimit(limit int) Option {
	return func(r *Resolver) error {
		if limit < 1 {
			limit = 1
		}
		r.limit = limit
		return nil
	}
}

// WithMetrics records query counts and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) error {
		r.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithClock overrides the time source used for LastSearchAt.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) error {
		r.now = now
		return nil
	}
}

// NewResolver creates a new resolver.
func NewResolver(
	catalog storage.CatalogRepository,
	users storage.UserRepository,
	escalator Escalator,
	opts ...Option,
) (*Resolver, error) {
	if catalog == nil {
		return nil, ErrCatalogRepositoryRequired
	}
	if users == nil {
		return nil, ErrUserRepositoryRequired
	}
	if escalator == nil {
		return nil, ErrEscalatorRequired
	}

	r := &Resolver{
		catalog:   catalog,
		users:     users,
		escalator: escalator,
		limit:     defaultResultLimit,
		now:       time.Now,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Limit returns the result cap.
func (r *Resolver) Limit() int {
	return r.limit
}

// Resolve answers query for req. An empty query fails with ErrInvalidQuery
// before the store is touched. The requester's last search time is recorded
// whatever the outcome.
func (r *Resolver) Resolve(ctx context.Context, query string, req Requester) (*Resolution, error) {
	start := time.Now()
	trimmed := core.TrimQuery(query)
	if trimmed == "" {
		r.metrics.Queried(metrics.OutcomeInvalid, time.Since(start))
		return nil, ErrInvalidQuery
	}

	if err := r.users.RecordSearch(ctx, req.ID, req.DisplayName, r.now()); err != nil {
		r.logger.Warn("could not record search time", "user", req.ID, "err", err)
	}

	records, err := r.catalog.FindByTitle(ctx, trimmed, "", r.limit)
	if err != nil {
		r.logger.Error("error querying catalog", "query", trimmed, "err", err)
		return nil, err
	}

	res := &Resolution{Query: trimmed, Records: records}
	if len(records) > 0 {
		res.Outcome = OutcomeMatched
		r.metrics.Queried(metrics.OutcomeMatched, time.Since(start))
		r.logger.Debug("query matched", "query", trimmed, "user", req.ID, "results", len(records))
		return res, nil
	}

	res.Outcome = OutcomeUnmatched
	entry, err := r.escalator.Escalate(ctx, trimmed, req.ID, req.DisplayName)
	if err != nil {
		r.logger.Error("could not escalate query", "query", trimmed, "user", req.ID, "err", err)
	}
	res.Escalation = entry
	r.metrics.Queried(metrics.OutcomeUnmatched, time.Since(start))
	return res, nil
}

// FindInLanguage returns records matching query restricted to one language.
// It neither records the search nor escalates.
func (r *Resolver) FindInLanguage(ctx context.Context, query string, language core.Language) ([]*core.CatalogRecord, error) {
	trimmed := core.TrimQuery(query)
	if trimmed == "" {
		return nil, ErrInvalidQuery
	}
	return r.catalog.FindByTitle(ctx, trimmed, language, r.limit)
}

// Lookup returns a single record by post ID.
func (r *Resolver) Lookup(ctx context.Context, id core.PostID) (*core.CatalogRecord, error) {
	return r.catalog.GetRecord(ctx, id)
}
