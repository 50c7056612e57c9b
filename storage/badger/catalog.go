package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/storage"
)

// CatalogRepository implements storage.CatalogRepository for BadgerDB.
type CatalogRepository struct {
	backend *Backend
}

var _ storage.CatalogRepository = (*CatalogRepository)(nil)

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(backend *Backend) *CatalogRepository {
	return &CatalogRepository{
		backend: backend,
	}
}

// Close releases resources. CatalogRepository has no resources to release.
func (r *CatalogRepository) Close() error {
	return nil
}

// UpsertRecords inserts or replaces records keyed by post ID.
func (r *CatalogRepository) UpsertRecords(ctx context.Context, records ...*core.CatalogRecord) ([]*core.CatalogRecord, error) {
	for _, record := range records {
		if err := core.ValidateCatalogRecord(record); err != nil {
			return nil, err
		}
	}

	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, record := range records {
			record.IndexedAt = now
			if err := tx.Set(makeCatalogKey(record.ID), storage.MarshalCatalogRecord(record)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetRecord retrieves a single record by post ID.
func (r *CatalogRepository) GetRecord(ctx context.Context, id core.PostID) (*core.CatalogRecord, error) {
	var result *core.CatalogRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readCatalogRecord(tx, makeCatalogKey(id))
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

// FindByTitle scans the catalog in post ID order and returns up to limit
// records whose title contains pattern, ignoring case.
func (r *CatalogRepository) FindByTitle(ctx context.Context, pattern string, language core.Language, limit int) ([]*core.CatalogRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}
	needle := strings.ToLower(pattern)

	var results []*core.CatalogRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(catalogRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid() && len(results) < limit; iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.CatalogRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalCatalogRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			if language != "" && record.Language != language {
				continue
			}
			if !strings.Contains(strings.ToLower(record.Title), needle) {
				continue
			}
			results = append(results, record)
		}
		return nil
	}, false)

	return results, err
}

// DeleteRecord removes a record by post ID.
func (r *CatalogRepository) DeleteRecord(ctx context.Context, id core.PostID) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeCatalogKey(id)
		if _, err := tx.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return tx.Delete(key)
	})
}

// DeleteAllRecords clears the catalog.
func (r *CatalogRepository) DeleteAllRecords(ctx context.Context) (int, error) {
	return r.backend.dropPrefix([]byte(catalogRecordPrefix))
}

// CountRecords returns the number of catalog records.
func (r *CatalogRepository) CountRecords(ctx context.Context) (int, error) {
	return r.backend.countPrefix([]byte(catalogRecordPrefix))
}

// readCatalogRecord reads a catalog record from the transaction.
// Returns nil, nil when the key does not exist.
func readCatalogRecord(tx *badger.Txn, key []byte) (*core.CatalogRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.CatalogRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalCatalogRecord(val)
		return unmarshalErr
	})
	return record, err
}
