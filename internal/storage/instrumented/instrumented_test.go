package instrumented

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"bridged-token-ledger/internal/domain"
	"bridged-token-ledger/internal/observability"
	"bridged-token-ledger/internal/storage"
	"bridged-token-ledger/internal/storage/memory"
)

// The prometheus default registry rejects duplicate registration, so the
// whole package shares one Metrics instance.
var testMetrics = observability.NewMetrics("instrumented_test")

func record(seq uint64) *domain.EventRecord {
	return &domain.EventRecord{
		Sequence:  seq,
		EventID:   "event-1",
		Type:      domain.EventMinted,
		Amount:    "100",
		Timestamp: 1_700_000_000_000,
	}
}

func errorCount(store, operation string) float64 {
	return testutil.ToFloat64(testMetrics.StoreQueryErrors.WithLabelValues(store, operation))
}

func TestEventStore_DelegatesAndObserves(t *testing.T) {
	store := NewEventStore(memory.NewEventStore(), "memory_events", testMetrics)
	ctx := context.Background()

	if err := store.Insert(ctx, record(1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := store.GetBySequence(ctx, 1)
	if err != nil {
		t.Fatalf("get by sequence: %v", err)
	}
	if got.EventID != "event-1" {
		t.Errorf("expected event-1, got %s", got.EventID)
	}

	if n := testutil.CollectAndCount(testMetrics.StoreQueryDuration); n < 2 {
		t.Errorf("expected at least 2 duration series, got %d", n)
	}
}

func TestEventStore_CountsErrors(t *testing.T) {
	store := NewEventStore(memory.NewEventStore(), "memory_events_errors", testMetrics)
	ctx := context.Background()

	if err := store.Insert(ctx, record(1)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	before := errorCount("memory_events_errors", "insert")
	err := store.Insert(ctx, record(1))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if after := errorCount("memory_events_errors", "insert"); after != before+1 {
		t.Errorf("expected insert error count %v, got %v", before+1, after)
	}

	// A successful call must not bump the error counter.
	if _, err := store.LastSequence(ctx); err != nil {
		t.Fatalf("last sequence: %v", err)
	}
	if got := errorCount("memory_events_errors", "last_sequence"); got != 0 {
		t.Errorf("expected no last_sequence errors, got %v", got)
	}
}

func TestSnapshotStore_DelegatesAndObserves(t *testing.T) {
	store := NewSnapshotStore(memory.NewSnapshotStore(), "memory_snapshots", testMetrics)
	ctx := context.Background()

	before := errorCount("memory_snapshots", "get_latest")
	if _, err := store.GetLatest(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}
	if after := errorCount("memory_snapshots", "get_latest"); after != before+1 {
		t.Errorf("expected get_latest error count %v, got %v", before+1, after)
	}

	snap := &domain.LedgerSnapshot{Sequence: 5, TotalSupply: "0", TakenAt: 1}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.GetBySequence(ctx, 5)
	if err != nil {
		t.Fatalf("get by sequence: %v", err)
	}
	if got.Sequence != 5 {
		t.Errorf("expected sequence 5, got %d", got.Sequence)
	}
}
