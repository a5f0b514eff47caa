package events

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"bridged-token-ledger/internal/domain"
	"bridged-token-ledger/internal/storage"
	"bridged-token-ledger/internal/storage/memory"
)

func record(seq uint64, eventType string) *domain.EventRecord {
	return &domain.EventRecord{
		Sequence:  seq,
		EventID:   fmt.Sprintf("id-%d", seq),
		Type:      eventType,
		Amount:    "100",
		Timestamp: int64(seq) * 1000,
	}
}

func TestJournal_AppendAndSince(t *testing.T) {
	j := NewJournal()
	ctx := context.Background()

	for seq := uint64(1); seq <= 5; seq++ {
		if err := j.Record(ctx, record(seq, domain.EventTransferCompleted)); err != nil {
			t.Fatalf("record %d: %v", seq, err)
		}
	}

	if got := j.Len(); got != 5 {
		t.Errorf("expected 5 records, got %d", got)
	}
	tail := j.Since(3)
	if len(tail) != 2 {
		t.Fatalf("expected 2 records after seq 3, got %d", len(tail))
	}
	if tail[0].Sequence != 4 || tail[1].Sequence != 5 {
		t.Errorf("expected sequences [4 5], got [%d %d]", tail[0].Sequence, tail[1].Sequence)
	}
}

func TestJournal_SinceZeroReturnsEverything(t *testing.T) {
	j := NewJournal()
	ctx := context.Background()
	if err := j.Record(ctx, record(1, domain.EventMinted)); err != nil {
		t.Fatalf("record: %v", err)
	}

	if got := len(j.Since(0)); got != 1 {
		t.Errorf("expected 1 record, got %d", got)
	}
	if got := len(j.Since(1)); got != 0 {
		t.Errorf("expected no records past the head, got %d", got)
	}
}

func TestJournal_SubscriberReceivesLiveRecords(t *testing.T) {
	j := NewJournal()
	ch, cancel := j.Subscribe()
	defer cancel()

	if err := j.Record(context.Background(), record(1, domain.EventMinted)); err != nil {
		t.Fatalf("record: %v", err)
	}

	got := <-ch
	if got.Sequence != 1 || got.Type != domain.EventMinted {
		t.Errorf("expected seq 1 Minted, got seq %d %s", got.Sequence, got.Type)
	}
}

func TestJournal_CancelClosesChannel(t *testing.T) {
	j := NewJournal()
	ch, cancel := j.Subscribe()
	cancel()

	if _, open := <-ch; open {
		t.Error("expected channel closed after cancel")
	}
	// Cancelling twice must not panic.
	cancel()
}

func TestJournal_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	j := NewJournal()
	ch, cancel := j.Subscribe()
	defer cancel()

	ctx := context.Background()
	overflow := subscriberBuffer + 50
	for seq := uint64(1); seq <= uint64(overflow); seq++ {
		if err := j.Record(ctx, record(seq, domain.EventTransferCompleted)); err != nil {
			t.Fatalf("record %d: %v", seq, err)
		}
	}

	// The channel holds at most its buffer; the journal kept everything.
	if got := len(ch); got != subscriberBuffer {
		t.Errorf("expected %d buffered records, got %d", subscriberBuffer, got)
	}
	if got := j.Len(); got != overflow {
		t.Errorf("expected journal to hold all %d records, got %d", overflow, got)
	}
}

// failingRecorder always errors, for exercising the fanout.
type failingRecorder struct{ calls int }

func (f *failingRecorder) Record(context.Context, *domain.EventRecord) error {
	f.calls++
	return errors.New("sink down")
}

func TestMulti_FailingSinkDoesNotStopOthers(t *testing.T) {
	broken := &failingRecorder{}
	j := NewJournal()
	m := NewMulti(nil, broken, j)

	if err := m.Record(context.Background(), record(1, domain.EventMinted)); err != nil {
		t.Fatalf("multi record: %v", err)
	}

	if broken.calls != 1 {
		t.Errorf("expected failing sink called once, got %d", broken.calls)
	}
	if j.Len() != 1 {
		t.Errorf("expected journal to receive the record despite the failure")
	}
}

func TestStoreRecorder_TreatsDuplicateAsSuccess(t *testing.T) {
	store := memory.NewEventStore()
	r := NewStoreRecorder(store)
	ctx := context.Background()

	rec := record(1, domain.EventMinted)
	if err := r.Record(ctx, rec); err != nil {
		t.Fatalf("first record: %v", err)
	}
	// A restart replaying the same journal re-records the same sequence.
	if err := r.Record(ctx, rec); err != nil {
		t.Fatalf("duplicate record should be tolerated, got %v", err)
	}

	last, err := store.LastSequence(ctx)
	if err != nil {
		t.Fatalf("last sequence: %v", err)
	}
	if last != 1 {
		t.Errorf("expected one stored record, last seq %d", last)
	}
}

func TestStoreRecorder_PropagatesOtherErrors(t *testing.T) {
	store := memory.NewEventStore()
	r := NewStoreRecorder(store)

	// A record with no sequence is invalid input for the store.
	err := r.Record(context.Background(), &domain.EventRecord{})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
