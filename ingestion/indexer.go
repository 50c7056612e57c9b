package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/reelbot/broadcast"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/metrics"
	"github.com/poiesic/reelbot/storage"
	"github.com/poiesic/reelbot/transport"
)

const (
	defaultExcerptLength = 100

	// ReasonNoText is the skip reason of a post with neither text nor caption.
	ReasonNoText = "no-text"
)

// Status is the result kind of an indexing attempt.
type Status int

const (
	// StatusIndexed means the record was written.
	StatusIndexed Status = iota
	// StatusSkipped means nothing was written.
	StatusSkipped
)

func (s Status) String() string {
	if s == StatusIndexed {
		return "indexed"
	}
	return "skipped"
}

// IndexOutcome describes what Ingest did with a post.
type IndexOutcome struct {
	Status Status
	Reason string              // set when skipped
	Record *core.CatalogRecord // set when indexed
}

// Indexer writes source channel posts into the catalog.
type Indexer struct {
	catalog       storage.CatalogRepository
	users         storage.UserRepository
	settings      storage.SettingsRepository
	fanout        *broadcast.Fanout
	notifyPool    *ants.Pool
	notifyWG      sync.WaitGroup
	excerptLength int
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithPoolSize sets the worker pool size for announcements.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ix *Indexer) error {
		if size < 1 {
			size = 1
		}
		if ix.notifyPool != nil {
			ix.notifyPool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		ix.notifyPool = pool
		return nil
	}
}

// WithExcerptLength sets how many runes of the title an announcement carries.
// Default is 100.
func WithExcerptLength(n int) Option {
	return func(ix *Indexer) error {
		if n > 0 {
			ix.excerptLength = n
		}
		return nil
	}
}

// WithMetrics records indexing outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(ix *Indexer) error {
		ix.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// NewIndexer creates a new indexer.
func NewIndexer(
	catalog storage.CatalogRepository,
	users storage.UserRepository,
	settings storage.SettingsRepository,
	fanout *broadcast.Fanout,
	opts ...Option,
) (*Indexer, error) {
	if catalog == nil {
		return nil, ErrCatalogRepositoryRequired
	}
	if users == nil {
		return nil, ErrUserRepositoryRequired
	}
	if settings == nil {
		return nil, ErrSettingsRepositoryRequired
	}
	if fanout == nil {
		return nil, ErrFanoutRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	ix := &Indexer{
		catalog:       catalog,
		users:         users,
		settings:      settings,
		fanout:        fanout,
		notifyPool:    pool,
		excerptLength: defaultExcerptLength,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(ix); optErr != nil {
			ix.Release()
			return nil, optErr
		}
	}

	return ix, nil
}

// BuildRecord derives a catalog record from a post. ok is false when the
// post carries no text.
func BuildRecord(post transport.PostReceived) (*core.CatalogRecord, bool) {
	text := post.Text
	if text == "" {
		text = post.Caption
	}
	if text == "" {
		return nil, false
	}

	created := post.Date
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return &core.CatalogRecord{
		ID:        post.ID,
		Title:     text,
		Year:      core.DeriveYear(text),
		Language:  core.DeriveLanguage(text),
		Thumbnail: post.ImageRef,
		CreatedAt: created,
	}, true
}

// Ingest indexes a post. Re-ingesting the same post ID overwrites the record.
func (ix *Indexer) Ingest(ctx context.Context, post transport.PostReceived) (IndexOutcome, error) {
	rec, ok := BuildRecord(post)
	if !ok {
		ix.metrics.Ingested(metrics.OutcomeSkipped)
		ix.logger.Debug("skipping post without text", "post", post.ID)
		return IndexOutcome{Status: StatusSkipped, Reason: ReasonNoText}, nil
	}

	stored, err := ix.catalog.UpsertRecords(ctx, rec)
	if err != nil {
		return IndexOutcome{}, fmt.Errorf("index post %d: %w", post.ID, err)
	}
	rec = stored[0]
	ix.metrics.Ingested(metrics.OutcomeIndexed)
	ix.logger.Info("indexed post", "post", rec.ID, "year", rec.Year, "language", rec.Language)

	ix.announce(ctx, rec)
	return IndexOutcome{Status: StatusIndexed, Record: rec}, nil
}

// announce queues the new-title notice when global notify is on.
func (ix *Indexer) announce(ctx context.Context, rec *core.CatalogRecord) {
	enabled, err := ix.settings.GetFlag(ctx, core.SettingGlobalNotify, false)
	if err != nil {
		ix.logger.Warn("could not read global notify setting", "err", err)
		return
	}
	if !enabled {
		return
	}

	msg := broadcast.TextMessage{Text: AnnouncementText(rec.Title, ix.excerptLength)}
	ix.notifyWG.Add(1)
	err = ix.notifyPool.Submit(func() {
		defer ix.notifyWG.Done()
		tally, err := ix.fanout.BroadcastToRegistry(context.Background(), msg, ix.users, storage.NotifyEnabled)
		if err != nil {
			ix.logger.Error("error announcing new title", "post", rec.ID, "err", err)
			return
		}
		ix.logger.Debug("announced new title", "post", rec.ID, "success", tally.Success, "failure", tally.Failure)
	})
	if err != nil {
		ix.notifyWG.Done()
		ix.logger.Error("could not queue announcement", "post", rec.ID, "err", err)
	}
}

// AnnouncementText formats the new-title notice.
func AnnouncementText(title string, excerptLength int) string {
	return fmt.Sprintf("New movie uploaded:\n%s\nSearch for it now!", core.Excerpt(title, excerptLength))
}

// Wait blocks until every queued announcement has finished.
func (ix *Indexer) Wait() {
	ix.notifyWG.Wait()
}

// Release releases resources including worker pools.
// The indexer should not be used after calling Release.
func (ix *Indexer) Release() {
	if ix.notifyPool != nil {
		ix.notifyPool.Release()
	}
}
