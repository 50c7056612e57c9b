package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/reelbot/storage"
)

// SettingsRepository implements storage.SettingsRepository for BadgerDB.
type SettingsRepository struct {
	backend *Backend
}

var _ storage.SettingsRepository = (*SettingsRepository)(nil)

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(backend *Backend) *SettingsRepository {
	return &SettingsRepository{
		backend: backend,
	}
}

// GetFlag returns the boolean setting for key, or def when unset.
func (r *SettingsRepository) GetFlag(ctx context.Context, key string, def bool) (bool, error) {
	value := def
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSettingKey(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			value, unmarshalErr = storage.UnmarshalFlag(val)
			return unmarshalErr
		})
	}, false)
	return value, err
}

// SetFlag stores a boolean setting.
func (r *SettingsRepository) SetFlag(ctx context.Context, key string, value bool) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Set(makeSettingKey(key), storage.MarshalFlag(value))
	})
}
