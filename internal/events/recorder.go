// Package events carries the append-only observability side-channel: every
// committed mutation produces one or more records which are journaled,
// persisted, and streamed to indexer clients. Recording happens after commit
// and is never part of the engine's control flow.
package events

import (
	"context"
	"log"

	"bridged-token-ledger/internal/domain"
)

// Recorder consumes committed event records. Implementations must not block
// the caller for long; the engine serializes all mutations behind a single
// lock and records while holding it.
type Recorder interface {
	Record(ctx context.Context, record *domain.EventRecord) error
}

// Nop discards all records.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, *domain.EventRecord) error { return nil }

// Multi fans records out to several recorders. A failing sink is logged and
// skipped; committed ledger state never depends on sink health.
type Multi struct {
	sinks  []Recorder
	logger *log.Logger
}

// NewMulti creates a fanout recorder. A nil logger disables failure logging.
func NewMulti(logger *log.Logger, sinks ...Recorder) *Multi {
	return &Multi{sinks: sinks, logger: logger}
}

// Record implements Recorder.
func (m *Multi) Record(ctx context.Context, record *domain.EventRecord) error {
	for _, sink := range m.sinks {
		if err := sink.Record(ctx, record); err != nil && m.logger != nil {
			m.logger.Printf("event sink failed for seq=%d type=%s: %v", record.Sequence, record.Type, err)
		}
	}
	return nil
}

var (
	_ Recorder = Nop{}
	_ Recorder = (*Multi)(nil)
)
