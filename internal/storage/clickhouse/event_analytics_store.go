package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"bridged-token-ledger/internal/domain"
)

// EventAnalyticsStore writes the committed event stream into ClickHouse for
// offline fee analytics. The journal in Postgres stays the source of truth;
// this table is an append-only projection, so duplicates from replays are
// tolerated and collapsed at query time.
type EventAnalyticsStore struct {
	conn *Conn
}

// NewEventAnalyticsStore creates a new EventAnalyticsStore.
func NewEventAnalyticsStore(conn *Conn) *EventAnalyticsStore {
	return &EventAnalyticsStore{conn: conn}
}

// InsertBulk appends a batch of event records.
func (s *EventAnalyticsStore) InsertBulk(ctx context.Context, records []*domain.EventRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO ledger_events (
			sequence, event_id, type, initiator, from_account, to_account, amount_raw, amount, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, record := range records {
		err = batch.Append(
			record.Sequence,
			record.EventID,
			record.Type,
			record.Initiator.String(),
			record.From.String(),
			record.To.String(),
			record.Amount,
			approximateAmount(record.Amount),
			uint64(record.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CountByType returns the number of distinct events per type within
// [start, end] ms (inclusive).
func (s *EventAnalyticsStore) CountByType(ctx context.Context, start, end int64) (map[string]uint64, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT type, uniqExact(sequence)
		FROM ledger_events
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		GROUP BY type
	`, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()

	result := make(map[string]uint64)
	for rows.Next() {
		var (
			eventType string
			count     uint64
		)
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		result[eventType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return result, nil
}

// FeeVolume returns the approximate total fee amount charged within
// [start, end] ms (inclusive). Exact amounts live in the raw column and the
// Postgres journal; the float column exists for cheap aggregation.
func (s *EventAnalyticsStore) FeeVolume(ctx context.Context, start, end int64) (float64, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT sum(amount)
		FROM (
			SELECT any(amount) AS amount
			FROM ledger_events
			WHERE type = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
			GROUP BY sequence
		)
	`, domain.EventFeeCharged, uint64(start), uint64(end))

	var total float64
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("fee volume: %w", err)
	}
	return total, nil
}

// approximateAmount converts a decimal amount string to float64 for the
// aggregation column. Empty amounts (role and whitelist events) map to 0.
func approximateAmount(amount string) float64 {
	if amount == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(amount, 64); err == nil {
		return v
	}
	f, _ := new(big.Float).SetString(amount)
	if f == nil {
		return 0
	}
	out, _ := f.Float64()
	return out
}
