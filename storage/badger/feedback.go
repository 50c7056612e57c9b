package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/storage"
)

// FeedbackRepository implements storage.FeedbackRepository for BadgerDB.
type FeedbackRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.FeedbackRepository = (*FeedbackRepository)(nil)

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(backend *Backend) (*FeedbackRepository, error) {
	idSeq, err := backend.GetSequence(feedbackIDSeq)
	if err != nil {
		return nil, err
	}

	return &FeedbackRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *FeedbackRepository) Close() error {
	return r.idSeq.Release()
}

// AddFeedback appends a feedback entry.
func (r *FeedbackRepository) AddFeedback(ctx context.Context, feedback *core.Feedback) error {
	nextID, err := r.idSeq.Next()
	if err != nil {
		return err
	}
	if feedback.Timestamp.IsZero() {
		feedback.Timestamp = time.Now().UTC()
	}

	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Set(makeFeedbackKey(nextID), storage.MarshalFeedback(feedback))
	})
}

// CountFeedback returns the number of stored entries.
func (r *FeedbackRepository) CountFeedback(ctx context.Context) (int, error) {
	return r.backend.countPrefix([]byte(feedbackPrefix))
}
