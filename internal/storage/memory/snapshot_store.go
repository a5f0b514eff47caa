package memory

import (
	"context"
	"sync"

	"bridged-token-ledger/internal/domain"
	"bridged-token-ledger/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[uint64]*domain.LedgerSnapshot // keyed by sequence
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[uint64]*domain.LedgerSnapshot),
	}
}

// Save persists a snapshot. Returns ErrDuplicateKey if its sequence exists.
func (s *SnapshotStore) Save(_ context.Context, snap *domain.LedgerSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snap.Sequence]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[snap.Sequence] = cloneSnapshot(snap)
	return nil
}

// GetLatest retrieves the snapshot with the highest sequence. Returns ErrNotFound when empty.
func (s *SnapshotStore) GetLatest(_ context.Context) (*domain.LedgerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.LedgerSnapshot
	for _, snap := range s.data {
		if latest == nil || snap.Sequence > latest.Sequence {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return cloneSnapshot(latest), nil
}

// GetBySequence retrieves the snapshot taken at a journal position. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetBySequence(_ context.Context, sequence uint64) (*domain.LedgerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[sequence]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneSnapshot(snap), nil
}

// cloneSnapshot deep-copies a snapshot so callers never alias stored maps.
func cloneSnapshot(snap *domain.LedgerSnapshot) *domain.LedgerSnapshot {
	out := *snap
	out.Balances = make(map[string]string, len(snap.Balances))
	for k, v := range snap.Balances {
		out.Balances[k] = v
	}
	out.Roles = make(map[string][]string, len(snap.Roles))
	for role, members := range snap.Roles {
		out.Roles[role] = append([]string(nil), members...)
	}
	out.Whitelist = append([]string(nil), snap.Whitelist...)
	out.Allowances = make(map[string]string, len(snap.Allowances))
	for k, v := range snap.Allowances {
		out.Allowances[k] = v
	}
	return &out
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
