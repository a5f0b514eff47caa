package storage

import (
	"context"

	"bridged-token-ledger/internal/domain"
)

// EventStore provides access to the durable event journal.
type EventStore interface {
	// Insert appends one record. Returns ErrDuplicateKey if the sequence exists.
	Insert(ctx context.Context, record *domain.EventRecord) error

	// InsertBulk appends multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.EventRecord) error

	// GetBySequence retrieves one record. Returns ErrNotFound if not exists.
	GetBySequence(ctx context.Context, sequence uint64) (*domain.EventRecord, error)

	// GetBySequenceRange retrieves records with sequence in [start, end] (inclusive), ordered ASC.
	GetBySequenceRange(ctx context.Context, start, end uint64) ([]*domain.EventRecord, error)

	// GetByAccount retrieves records where the account is initiator, from, or to, ordered by sequence ASC.
	GetByAccount(ctx context.Context, account domain.Address) ([]*domain.EventRecord, error)

	// GetByTimeRange retrieves records with timestamp in [start, end] (inclusive), ordered by sequence ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.EventRecord, error)

	// LastSequence returns the highest stored sequence, or 0 when empty.
	LastSequence(ctx context.Context) (uint64, error)
}

// SnapshotStore provides access to ledger snapshot storage.
type SnapshotStore interface {
	// Save persists a snapshot. Returns ErrDuplicateKey if its sequence exists.
	Save(ctx context.Context, snap *domain.LedgerSnapshot) error

	// GetLatest retrieves the snapshot with the highest sequence. Returns ErrNotFound when empty.
	GetLatest(ctx context.Context) (*domain.LedgerSnapshot, error)

	// GetBySequence retrieves the snapshot taken at a journal position. Returns ErrNotFound if not exists.
	GetBySequence(ctx context.Context, sequence uint64) (*domain.LedgerSnapshot, error)
}
