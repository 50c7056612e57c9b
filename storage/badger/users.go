package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/storage"
)

// DefaultBatchSize is the default number of profiles handed to ForEachUser callbacks.
const DefaultBatchSize = 100

// UserRepository implements storage.UserRepository for BadgerDB.
type UserRepository struct {
	backend *Backend
}

var _ storage.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository.
func NewUserRepository(backend *Backend) *UserRepository {
	return &UserRepository{
		backend: backend,
	}
}

// Close releases resources. UserRepository has no resources to release.
func (r *UserRepository) Close() error {
	return nil
}

// TouchUser creates the profile on first interaction and refreshes the display name.
func (r *UserRepository) TouchUser(ctx context.Context, id core.UserID, displayName string) (*core.UserProfile, error) {
	var result *core.UserProfile
	err := r.mutate(ctx, id, func(user *core.UserProfile) {
		if displayName != "" {
			user.DisplayName = displayName
		}
		result = user
	})
	return result, err
}

// RecordSearch stamps LastSearchAt, creating the profile if needed.
func (r *UserRepository) RecordSearch(ctx context.Context, id core.UserID, displayName string, at time.Time) error {
	return r.mutate(ctx, id, func(user *core.UserProfile) {
		if displayName != "" {
			user.DisplayName = displayName
		}
		user.LastSearchAt = at.UTC()
	})
}

// GetUser retrieves a profile by ID.
func (r *UserRepository) GetUser(ctx context.Context, id core.UserID) (*core.UserProfile, error) {
	var result *core.UserProfile
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readUserProfile(tx, makeUserKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// SetNotify sets the notification flag of one user.
func (r *UserRepository) SetNotify(ctx context.Context, id core.UserID, pref core.NotifyPreference) error {
	if err := core.ValidateNotifyPreference(pref); err != nil {
		return err
	}
	return r.mutate(ctx, id, func(user *core.UserProfile) {
		user.Notify = pref
	})
}

// SetNotifyAll sets the notification flag of every registered user.
// Profiles are rewritten page by page so large registries never exceed
// badger's transaction size limit. Each profile is re-read inside the write
// transaction, so concurrent updates to other fields are kept.
func (r *UserRepository) SetNotifyAll(ctx context.Context, pref core.NotifyPreference) (int, error) {
	if err := core.ValidateNotifyPreference(pref); err != nil {
		return 0, err
	}

	updated := 0
	err := r.ForEachUser(ctx, DefaultBatchSize, func(users []*core.UserProfile) error {
		n := 0
		err := r.backend.Update(ctx, func(tx *badger.Txn) error {
			n = 0
			for _, listed := range users {
				key := makeUserKey(listed.ID)
				user, err := readUserProfile(tx, key)
				if err != nil {
					return err
				}
				if user == nil {
					continue
				}
				user.Notify = pref
				if err := tx.Set(key, storage.MarshalUserProfile(user)); err != nil {
					return err
				}
				n++
			}
			return nil
		})
		if err != nil {
			return err
		}
		updated += n
		return nil
	})
	return updated, err
}

// ListUserIDs returns the IDs of users selected by filter.
func (r *UserRepository) ListUserIDs(ctx context.Context, filter storage.UserFilter) ([]core.UserID, error) {
	var ids []core.UserID
	err := r.ForEachUser(ctx, DefaultBatchSize, func(users []*core.UserProfile) error {
		for _, user := range users {
			if filter == nil || filter(user) {
				ids = append(ids, user.ID)
			}
		}
		return nil
	})
	return ids, err
}

// ForEachUser pages through the registry in ID order. Each page is read in its
// own transaction, so fn may take as long as it needs without pinning a snapshot.
func (r *UserRepository) ForEachUser(ctx context.Context, batchSize int, fn func([]*core.UserProfile) error) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	prefix := []byte(userRecordPrefix)
	seek := prefix
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var batch []*core.UserProfile
		var next []byte
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			iter := tx.NewIterator(opts)
			defer iter.Close()

			for iter.Seek(seek); iter.Valid(); iter.Next() {
				if len(batch) == batchSize {
					next = iter.Item().KeyCopy(nil)
					return nil
				}
				var user *core.UserProfile
				err := iter.Item().Value(func(val []byte) error {
					var err error
					user, err = storage.UnmarshalUserProfile(val)
					return err
				})
				if err != nil {
					return err
				}
				batch = append(batch, user)
			}
			return nil
		}, false)
		if err != nil {
			return err
		}

		if len(batch) > 0 {
			if err := fn(batch); err != nil {
				return err
			}
		}
		if next == nil {
			return nil
		}
		seek = next
	}
}

// CountUsers returns the number of registered users.
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	return r.backend.countPrefix([]byte(userRecordPrefix))
}

// mutate applies fn to the stored profile, creating it first if missing.
func (r *UserRepository) mutate(ctx context.Context, id core.UserID, fn func(*core.UserProfile)) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeUserKey(id)
		user, err := readUserProfile(tx, key)
		if err != nil {
			return err
		}
		if user == nil {
			user = &core.UserProfile{ID: id, JoinedAt: time.Now().UTC()}
		}
		fn(user)
		return tx.Set(key, storage.MarshalUserProfile(user))
	})
}

// readUserProfile reads a user profile from the transaction.
// Returns nil, nil when the key does not exist.
func readUserProfile(tx *badger.Txn, key []byte) (*core.UserProfile, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var user *core.UserProfile
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		user, unmarshalErr = storage.UnmarshalUserProfile(val)
		return unmarshalErr
	})
	return user, err
}
