package memory

import (
	"context"
	"sort"
	"sync"

	"bridged-token-ledger/internal/domain"
	"bridged-token-ledger/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[uint64]*domain.EventRecord // keyed by sequence
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[uint64]*domain.EventRecord),
	}
}

// Insert appends one record. Returns ErrDuplicateKey if the sequence exists.
func (s *EventStore) Insert(_ context.Context, record *domain.EventRecord) error {
	if record == nil || record.Sequence == 0 || record.Type == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[record.Sequence]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *record
	s.data[record.Sequence] = &copy
	return nil
}

// InsertBulk appends multiple records atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(_ context.Context, records []*domain.EventRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track sequences in this batch to detect intra-batch duplicates
	batchKeys := make(map[uint64]struct{}, len(records))

	for _, record := range records {
		if record == nil || record.Sequence == 0 || record.Type == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[record.Sequence]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[record.Sequence]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[record.Sequence] = struct{}{}
	}

	for _, record := range records {
		copy := *record
		s.data[record.Sequence] = &copy
	}

	return nil
}

// GetBySequence retrieves one record. Returns ErrNotFound if not exists.
func (s *EventStore) GetBySequence(_ context.Context, sequence uint64) (*domain.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.data[sequence]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *record
	return &copy, nil
}

// GetBySequenceRange retrieves records with sequence in [start, end] (inclusive), ordered ASC.
func (s *EventStore) GetBySequenceRange(_ context.Context, start, end uint64) ([]*domain.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EventRecord
	for _, record := range s.data {
		if record.Sequence >= start && record.Sequence <= end {
			copy := *record
			result = append(result, &copy)
		}
	}
	sortBySequence(result)
	return result, nil
}

// GetByAccount retrieves records touching the account, ordered by sequence ASC.
func (s *EventStore) GetByAccount(_ context.Context, account domain.Address) ([]*domain.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EventRecord
	for _, record := range s.data {
		if record.Initiator == account || record.From == account || record.To == account {
			copy := *record
			result = append(result, &copy)
		}
	}
	sortBySequence(result)
	return result, nil
}

// GetByTimeRange retrieves records with timestamp in [start, end] (inclusive), ordered by sequence ASC.
func (s *EventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EventRecord
	for _, record := range s.data {
		if record.Timestamp >= start && record.Timestamp <= end {
			copy := *record
			result = append(result, &copy)
		}
	}
	sortBySequence(result)
	return result, nil
}

// LastSequence returns the highest stored sequence, or 0 when empty.
func (s *EventStore) LastSequence(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last uint64
	for sequence := range s.data {
		if sequence > last {
			last = sequence
		}
	}
	return last, nil
}

func sortBySequence(records []*domain.EventRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Sequence < records[j].Sequence
	})
}

var _ storage.EventStore = (*EventStore)(nil)
