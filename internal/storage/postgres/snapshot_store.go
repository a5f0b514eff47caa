package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bridged-token-ledger/internal/domain"
	"bridged-token-ledger/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL. The map
// fields of a snapshot are stored as JSONB.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Save persists a snapshot. Returns ErrDuplicateKey if its sequence exists.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.LedgerSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	balances, err := json.Marshal(snap.Balances)
	if err != nil {
		return fmt.Errorf("marshal balances: %w", err)
	}
	roles, err := json.Marshal(snap.Roles)
	if err != nil {
		return fmt.Errorf("marshal roles: %w", err)
	}
	whitelist, err := json.Marshal(snap.Whitelist)
	if err != nil {
		return fmt.Errorf("marshal whitelist: %w", err)
	}
	allowances, err := json.Marshal(snap.Allowances)
	if err != nil {
		return fmt.Errorf("marshal allowances: %w", err)
	}

	query := `
		INSERT INTO snapshots (
			sequence, taken_at, total_supply, max_supply, balances, roles, whitelist, threshold, allowances
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		int64(snap.Sequence),
		snap.TakenAt,
		snap.TotalSupply,
		snap.MaxSupply,
		balances,
		roles,
		whitelist,
		snap.Threshold,
		allowances,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetLatest retrieves the snapshot with the highest sequence. Returns ErrNotFound when empty.
func (s *SnapshotStore) GetLatest(ctx context.Context) (*domain.LedgerSnapshot, error) {
	query := snapshotSelect + ` ORDER BY sequence DESC LIMIT 1`
	return s.get(ctx, query)
}

// GetBySequence retrieves the snapshot taken at a journal position. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetBySequence(ctx context.Context, sequence uint64) (*domain.LedgerSnapshot, error) {
	query := snapshotSelect + ` WHERE sequence = $1`
	return s.get(ctx, query, int64(sequence))
}

const snapshotSelect = `
	SELECT sequence, taken_at, total_supply, max_supply, balances, roles, whitelist, threshold, allowances
	FROM snapshots
`

func (s *SnapshotStore) get(ctx context.Context, query string, args ...any) (*domain.LedgerSnapshot, error) {
	row := s.pool.QueryRow(ctx, query, args...)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

func scanSnapshot(row pgx.Row) (*domain.LedgerSnapshot, error) {
	var (
		snap       domain.LedgerSnapshot
		sequence   int64
		balances   []byte
		roles      []byte
		whitelist  []byte
		allowances []byte
	)
	err := row.Scan(
		&sequence,
		&snap.TakenAt,
		&snap.TotalSupply,
		&snap.MaxSupply,
		&balances,
		&roles,
		&whitelist,
		&snap.Threshold,
		&allowances,
	)
	if err != nil {
		return nil, err
	}
	snap.Sequence = uint64(sequence)

	if err := json.Unmarshal(balances, &snap.Balances); err != nil {
		return nil, fmt.Errorf("unmarshal balances: %w", err)
	}
	if err := json.Unmarshal(roles, &snap.Roles); err != nil {
		return nil, fmt.Errorf("unmarshal roles: %w", err)
	}
	if err := json.Unmarshal(whitelist, &snap.Whitelist); err != nil {
		return nil, fmt.Errorf("unmarshal whitelist: %w", err)
	}
	if err := json.Unmarshal(allowances, &snap.Allowances); err != nil {
		return nil, fmt.Errorf("unmarshal allowances: %w", err)
	}
	return &snap, nil
}
