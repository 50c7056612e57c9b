package storage

import (
	"context"
	"time"

	"github.com/poiesic/reelbot/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// CatalogRepository provides operations for managing catalog records.
type CatalogRepository interface {
	Repository
	// UpsertRecords inserts or replaces records keyed by their post ID.
	// Re-upserting an existing ID overwrites every field; it never duplicates.
	// Sets IndexedAt on each record.
	UpsertRecords(ctx context.Context, records ...*core.CatalogRecord) ([]*core.CatalogRecord, error)

	// GetRecord retrieves a single record by post ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetRecord(ctx context.Context, id core.PostID) (*core.CatalogRecord, error)

	// FindByTitle returns records whose title contains pattern, compared
	// case-insensitively. An empty language matches every record.
	// Results come back in ascending post ID order, up to limit records.
	FindByTitle(ctx context.Context, pattern string, language core.Language, limit int) ([]*core.CatalogRecord, error)

	// DeleteRecord removes a record by post ID.
	// Returns ErrNotFound if the record doesn't exist.
	DeleteRecord(ctx context.Context, id core.PostID) error

	// DeleteAllRecords clears the catalog and returns how many records were removed.
	DeleteAllRecords(ctx context.Context) (int, error)

	// CountRecords returns the number of catalog records.
	CountRecords(ctx context.Context) (int, error)
}

// UserFilter selects users during registry scans. A nil filter selects everyone.
type UserFilter func(*core.UserProfile) bool

// NotifyEnabled selects users whose notification flag is not explicitly off.
func NotifyEnabled(u *core.UserProfile) bool {
	return u.Notify.Enabled()
}

// UserRepository provides operations for the user registry.
type UserRepository interface {
	Repository
	// TouchUser creates the profile on first interaction and refreshes the
	// display name on later ones. JoinedAt is set once.
	TouchUser(ctx context.Context, id core.UserID, displayName string) (*core.UserProfile, error)

	// RecordSearch stamps LastSearchAt, creating the profile if needed.
	RecordSearch(ctx context.Context, id core.UserID, displayName string, at time.Time) error

	// GetUser retrieves a profile by ID.
	// Returns ErrNotFound if the user doesn't exist.
	GetUser(ctx context.Context, id core.UserID) (*core.UserProfile, error)

	// SetNotify sets the notification flag of one user, creating the profile if needed.
	SetNotify(ctx context.Context, id core.UserID, pref core.NotifyPreference) error

	// SetNotifyAll sets the notification flag of every registered user.
	// Returns the number of profiles updated.
	SetNotifyAll(ctx context.Context, pref core.NotifyPreference) (int, error)

	// ListUserIDs returns the IDs of users selected by filter, in ID order.
	ListUserIDs(ctx context.Context, filter UserFilter) ([]core.UserID, error)

	// ForEachUser calls fn with batches of at most batchSize profiles.
	// Iteration stops on the first error from fn or on context cancellation.
	ForEachUser(ctx context.Context, batchSize int, fn func([]*core.UserProfile) error) error

	// CountUsers returns the number of registered users.
	CountUsers(ctx context.Context) (int, error)
}

// EscalationRepository provides operations for the escalation log.
type EscalationRepository interface {
	Repository
	// RecordRequest adds user to the entry for the normalized query, creating
	// the entry on first use. Adding an existing member is a no-op.
	// Safe under concurrent callers: the set-union is applied atomically.
	RecordRequest(ctx context.Context, query string, user core.UserID, at time.Time) (*core.EscalationEntry, error)

	// GetEscalation retrieves the entry for a normalized query.
	// Returns ErrNotFound if no entry exists.
	GetEscalation(ctx context.Context, query string) (*core.EscalationEntry, error)

	// ListEscalations returns every entry, oldest first.
	ListEscalations(ctx context.Context) ([]*core.EscalationEntry, error)

	// DeleteAllEscalations clears the log and returns how many entries were removed.
	DeleteAllEscalations(ctx context.Context) (int, error)

	// CountEscalations returns the number of entries.
	CountEscalations(ctx context.Context) (int, error)
}

// SettingsRepository stores singleton key/value settings.
type SettingsRepository interface {
	// GetFlag returns the boolean setting for key, or def when unset.
	GetFlag(ctx context.Context, key string, def bool) (bool, error)

	// SetFlag stores a boolean setting.
	SetFlag(ctx context.Context, key string, value bool) error
}

// FeedbackRepository stores user feedback.
type FeedbackRepository interface {
	// AddFeedback appends a feedback entry.
	AddFeedback(ctx context.Context, feedback *core.Feedback) error

	// CountFeedback returns the number of stored entries.
	CountFeedback(ctx context.Context) (int, error)
}
