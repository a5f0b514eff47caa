package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bridged-token-ledger/internal/domain"
	"bridged-token-ledger/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const eventColumns = `sequence, event_id, type, initiator, from_account, to_account, amount, role, prev_value, timestamp`

const insertEventQuery = `
	INSERT INTO events (
		sequence, event_id, type, initiator, from_account, to_account, amount, role, prev_value, timestamp
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Insert appends one record. Returns ErrDuplicateKey if the sequence exists.
func (s *EventStore) Insert(ctx context.Context, record *domain.EventRecord) error {
	if record == nil || record.Sequence == 0 || record.Type == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertEventQuery, eventArgs(record)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// InsertBulk appends multiple records atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(ctx context.Context, records []*domain.EventRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, record := range records {
		if record == nil || record.Sequence == 0 || record.Type == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertEventQuery, eventArgs(record)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetBySequence retrieves one record. Returns ErrNotFound if not exists.
func (s *EventStore) GetBySequence(ctx context.Context, sequence uint64) (*domain.EventRecord, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE sequence = $1`

	row := s.pool.QueryRow(ctx, query, int64(sequence))
	record, err := scanEvent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get event by sequence: %w", err)
	}
	return record, nil
}

// GetBySequenceRange retrieves records with sequence in [start, end] (inclusive), ordered ASC.
func (s *EventStore) GetBySequenceRange(ctx context.Context, start, end uint64) ([]*domain.EventRecord, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE sequence >= $1 AND sequence <= $2
		ORDER BY sequence ASC
	`

	rows, err := s.pool.Query(ctx, query, int64(start), int64(end))
	if err != nil {
		return nil, fmt.Errorf("get events by sequence range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByAccount retrieves records touching the account, ordered by sequence ASC.
func (s *EventStore) GetByAccount(ctx context.Context, account domain.Address) ([]*domain.EventRecord, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE initiator = $1 OR from_account = $1 OR to_account = $1
		ORDER BY sequence ASC
	`

	rows, err := s.pool.Query(ctx, query, account.String())
	if err != nil {
		return nil, fmt.Errorf("get events by account: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByTimeRange retrieves records with timestamp in [start, end] (inclusive), ordered by sequence ASC.
func (s *EventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.EventRecord, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY sequence ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get events by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// LastSequence returns the highest stored sequence, or 0 when empty.
func (s *EventStore) LastSequence(ctx context.Context) (uint64, error) {
	var last int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(sequence), 0) FROM events`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("get last sequence: %w", err)
	}
	return uint64(last), nil
}

func eventArgs(record *domain.EventRecord) []any {
	return []any{
		int64(record.Sequence),
		record.EventID,
		record.Type,
		record.Initiator.String(),
		record.From.String(),
		record.To.String(),
		record.Amount,
		string(record.Role),
		record.PrevValue,
		record.Timestamp,
	}
}

func scanEvent(row pgx.Row) (*domain.EventRecord, error) {
	var (
		record    domain.EventRecord
		sequence  int64
		initiator string
		from      string
		to        string
		role      string
	)
	err := row.Scan(
		&sequence,
		&record.EventID,
		&record.Type,
		&initiator,
		&from,
		&to,
		&record.Amount,
		&role,
		&record.PrevValue,
		&record.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	record.Sequence = uint64(sequence)
	record.Initiator = domain.Address(initiator)
	record.From = domain.Address(from)
	record.To = domain.Address(to)
	record.Role = domain.Role(role)
	return &record, nil
}

func scanEvents(rows pgx.Rows) ([]*domain.EventRecord, error) {
	var result []*domain.EventRecord
	for rows.Next() {
		record, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return result, nil
}
