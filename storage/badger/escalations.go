package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/storage"
)

// EscalationRepository implements storage.EscalationRepository for BadgerDB.
// Entries are keyed by the BLAKE2b ID of their normalized query.
type EscalationRepository struct {
	backend *Backend
}

var _ storage.EscalationRepository = (*EscalationRepository)(nil)

// NewEscalationRepository creates a new EscalationRepository.
func NewEscalationRepository(backend *Backend) *EscalationRepository {
	return &EscalationRepository{
		backend: backend,
	}
}

// Close releases resources. EscalationRepository has no resources to release.
func (r *EscalationRepository) Close() error {
	return nil
}

// RecordRequest adds user to the entry for query with set-union semantics.
func (r *EscalationRepository) RecordRequest(ctx context.Context, query string, user core.UserID, at time.Time) (*core.EscalationEntry, error) {
	probe := &core.EscalationEntry{Query: query}
	if err := core.ValidateEscalationEntry(probe); err != nil {
		return nil, err
	}
	at = at.UTC()

	var result *core.EscalationEntry
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeEscalationKey(query)
		entry, err := readEscalationEntry(tx, key)
		if err != nil {
			return err
		}
		if entry == nil {
			entry = &core.EscalationEntry{Query: query, FirstSeen: at}
		}
		entry.AddUser(user)
		entry.LastSeen = at
		if err := tx.Set(key, storage.MarshalEscalationEntry(entry)); err != nil {
			return err
		}
		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetEscalation retrieves the entry for a normalized query.
func (r *EscalationRepository) GetEscalation(ctx context.Context, query string) (*core.EscalationEntry, error) {
	var result *core.EscalationEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readEscalationEntry(tx, makeEscalationKey(query))
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

// ListEscalations returns every entry ordered by first-seen time.
func (r *EscalationRepository) ListEscalations(ctx context.Context) ([]*core.EscalationEntry, error) {
	var results []*core.EscalationEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(escalationPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *core.EscalationEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalEscalationEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, entry)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b *core.EscalationEntry) int {
		return a.FirstSeen.Compare(b.FirstSeen)
	})
	return results, nil
}

// DeleteAllEscalations clears the log.
func (r *EscalationRepository) DeleteAllEscalations(ctx context.Context) (int, error) {
	return r.backend.dropPrefix([]byte(escalationPrefix))
}

// CountEscalations returns the number of entries.
func (r *EscalationRepository) CountEscalations(ctx context.Context) (int, error) {
	return r.backend.countPrefix([]byte(escalationPrefix))
}

// readEscalationEntry reads an escalation entry from the transaction.
// Returns nil, nil when the key does not exist.
func readEscalationEntry(tx *badger.Txn, key []byte) (*core.EscalationEntry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entry *core.EscalationEntry
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		entry, unmarshalErr = storage.UnmarshalEscalationEntry(val)
		return unmarshalErr
	})
	return entry, err
}
