// Package instrumented decorates stores with Prometheus query metrics.
package instrumented

import (
	"context"
	"time"

	"bridged-token-ledger/internal/domain"
	"bridged-token-ledger/internal/observability"
	"bridged-token-ledger/internal/storage"
)

// EventStore wraps a storage.EventStore, observing per-operation latency and
// errors. The wrapped store stays the source of truth; the wrapper adds no
// behavior.
type EventStore struct {
	inner   storage.EventStore
	name    string
	metrics *observability.Metrics
}

// NewEventStore creates an instrumented event store. name labels the metrics,
// e.g. "postgres_events".
func NewEventStore(inner storage.EventStore, name string, metrics *observability.Metrics) *EventStore {
	return &EventStore{inner: inner, name: name, metrics: metrics}
}

func (s *EventStore) Insert(ctx context.Context, record *domain.EventRecord) error {
	start := time.Now()
	return s.observe("insert", start, s.inner.Insert(ctx, record))
}

func (s *EventStore) InsertBulk(ctx context.Context, records []*domain.EventRecord) error {
	start := time.Now()
	return s.observe("insert_bulk", start, s.inner.InsertBulk(ctx, records))
}

func (s *EventStore) GetBySequence(ctx context.Context, sequence uint64) (*domain.EventRecord, error) {
	start := time.Now()
	record, err := s.inner.GetBySequence(ctx, sequence)
	return record, s.observe("get_by_sequence", start, err)
}

func (s *EventStore) GetBySequenceRange(ctx context.Context, startSeq, endSeq uint64) ([]*domain.EventRecord, error) {
	start := time.Now()
	records, err := s.inner.GetBySequenceRange(ctx, startSeq, endSeq)
	return records, s.observe("get_by_sequence_range", start, err)
}

func (s *EventStore) GetByAccount(ctx context.Context, account domain.Address) ([]*domain.EventRecord, error) {
	start := time.Now()
	records, err := s.inner.GetByAccount(ctx, account)
	return records, s.observe("get_by_account", start, err)
}

func (s *EventStore) GetByTimeRange(ctx context.Context, startMs, endMs int64) ([]*domain.EventRecord, error) {
	start := time.Now()
	records, err := s.inner.GetByTimeRange(ctx, startMs, endMs)
	return records, s.observe("get_by_time_range", start, err)
}

func (s *EventStore) LastSequence(ctx context.Context) (uint64, error) {
	start := time.Now()
	sequence, err := s.inner.LastSequence(ctx)
	return sequence, s.observe("last_sequence", start, err)
}

func (s *EventStore) observe(operation string, start time.Time, err error) error {
	s.metrics.StoreQueryDuration.WithLabelValues(s.name, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.StoreQueryErrors.WithLabelValues(s.name, operation).Inc()
	}
	return err
}

// SnapshotStore wraps a storage.SnapshotStore the same way.
type SnapshotStore struct {
	inner   storage.SnapshotStore
	name    string
	metrics *observability.Metrics
}

// NewSnapshotStore creates an instrumented snapshot store.
func NewSnapshotStore(inner storage.SnapshotStore, name string, metrics *observability.Metrics) *SnapshotStore {
	return &SnapshotStore{inner: inner, name: name, metrics: metrics}
}

func (s *SnapshotStore) Save(ctx context.Context, snap *domain.LedgerSnapshot) error {
	start := time.Now()
	return s.observe("save", start, s.inner.Save(ctx, snap))
}

func (s *SnapshotStore) GetLatest(ctx context.Context) (*domain.LedgerSnapshot, error) {
	start := time.Now()
	snap, err := s.inner.GetLatest(ctx)
	return snap, s.observe("get_latest", start, err)
}

func (s *SnapshotStore) GetBySequence(ctx context.Context, sequence uint64) (*domain.LedgerSnapshot, error) {
	start := time.Now()
	snap, err := s.inner.GetBySequence(ctx, sequence)
	return snap, s.observe("get_by_sequence", start, err)
}

func (s *SnapshotStore) observe(operation string, start time.Time, err error) error {
	s.metrics.StoreQueryDuration.WithLabelValues(s.name, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.StoreQueryErrors.WithLabelValues(s.name, operation).Inc()
	}
	return err
}

var (
	_ storage.EventStore    = (*EventStore)(nil)
	_ storage.SnapshotStore = (*SnapshotStore)(nil)
)
