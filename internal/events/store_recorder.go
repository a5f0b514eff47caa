package events

import (
	"context"
	"errors"
	"fmt"

	"bridged-token-ledger/internal/domain"
	"bridged-token-ledger/internal/storage"
)

// StoreRecorder persists every record to a durable event store as it is
// emitted. A duplicate sequence means the record is already durable, which is
// not an error during replay-style restarts.
type StoreRecorder struct {
	store storage.EventStore
}

// NewStoreRecorder wraps an event store as a Recorder.
func NewStoreRecorder(store storage.EventStore) *StoreRecorder {
	return &StoreRecorder{store: store}
}

// Record implements Recorder.
func (r *StoreRecorder) Record(ctx context.Context, record *domain.EventRecord) error {
	if ctx == nil {
		ctx = context.Background()
	}
	err := r.store.Insert(ctx, record)
	if err == nil || errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return fmt.Errorf("persist event seq=%d: %w", record.Sequence, err)
}

var _ Recorder = (*StoreRecorder)(nil)
