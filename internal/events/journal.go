package events

import (
	"context"
	"sync"

	"bridged-token-ledger/internal/domain"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls further behind than this loses records; the durable stores, not the
// live feed, are the source of truth.
const subscriberBuffer = 256

// Journal is the in-memory append-only event log with subscriber fanout.
type Journal struct {
	mu      sync.RWMutex
	records []domain.EventRecord
	subs    map[int]chan domain.EventRecord
	nextSub int
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{subs: make(map[int]chan domain.EventRecord)}
}

// Record implements Recorder: append and fan out without blocking.
func (j *Journal) Record(_ context.Context, record *domain.EventRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.records = append(j.records, *record)
	for _, ch := range j.subs {
		select {
		case ch <- *record:
		default:
			// Slow subscriber, drop. It can resync from Since.
		}
	}
	return nil
}

// Subscribe registers a live feed. The returned cancel function must be
// called to release the subscription.
func (j *Journal) Subscribe() (<-chan domain.EventRecord, func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	id := j.nextSub
	j.nextSub++
	ch := make(chan domain.EventRecord, subscriberBuffer)
	j.subs[id] = ch

	cancel := func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if sub, ok := j.subs[id]; ok {
			delete(j.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Since returns copies of all records with Sequence > seq in journal order.
func (j *Journal) Since(seq uint64) []domain.EventRecord {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []domain.EventRecord
	for _, record := range j.records {
		if record.Sequence > seq {
			out = append(out, record)
		}
	}
	return out
}

// Len returns the number of journaled records.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.records)
}

var _ Recorder = (*Journal)(nil)
