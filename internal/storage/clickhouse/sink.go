package clickhouse

import (
	"context"
	"sync"

	"bridged-token-ledger/internal/domain"
)

// defaultFlushSize is the batch size at which the sink flushes automatically.
const defaultFlushSize = 128

// Sink buffers event records and flushes them to the analytics store in
// batches. It implements the events.Recorder shape; Record never blocks on
// ClickHouse unless a flush is due.
type Sink struct {
	store     *EventAnalyticsStore
	flushSize int

	mu     sync.Mutex
	buffer []*domain.EventRecord
}

// NewSink creates a sink around the analytics store. flushSize <= 0 uses the
// default.
func NewSink(store *EventAnalyticsStore, flushSize int) *Sink {
	if flushSize <= 0 {
		flushSize = defaultFlushSize
	}
	return &Sink{store: store, flushSize: flushSize}
}

// Record buffers one record, flushing when the batch is full.
func (s *Sink) Record(ctx context.Context, record *domain.EventRecord) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	copy := *record
	s.buffer = append(s.buffer, &copy)
	if len(s.buffer) < s.flushSize {
		s.mu.Unlock()
		return nil
	}
	batch := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	return s.store.InsertBulk(ctx, batch)
}

// Flush writes any buffered records immediately. Call on shutdown and on a
// periodic ticker.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return s.store.InsertBulk(ctx, batch)
}

// Pending returns the number of buffered records.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}
