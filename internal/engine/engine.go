// Package engine orchestrates every value movement. It routes each transfer
// through an ordered pipeline (mint/burn endpoint check, exemption check, fee
// computation, ledger mutation), guards the privileged entry points with role
// checks, and emits one event record per committed mutation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"bridged-token-ledger/internal/accesscontrol"
	"bridged-token-ledger/internal/domain"
	"bridged-token-ledger/internal/events"
	"bridged-token-ledger/internal/exemption"
	"bridged-token-ledger/internal/feepolicy"
	"bridged-token-ledger/internal/idhash"
	"bridged-token-ledger/internal/ledger"
	"bridged-token-ledger/internal/observability"
)

// Engine composes the access-control registry, the supply ledger, the
// exemption registry, and the fee policy behind a single mutex, so every
// mutating call runs to completion atomically and calls never observe each
// other's partial state.
type Engine struct {
	mu sync.Mutex

	token      domain.TokenInfo
	acl        *accesscontrol.Registry
	ledger     *ledger.SupplyLedger
	exemptions *exemption.Registry
	fees       *feepolicy.Policy
	collector  domain.Address

	recorder events.Recorder
	metrics  *observability.Metrics

	allowances map[allowanceKey]*big.Int
	sequence   uint64 // last assigned event sequence
}

// allowanceKey identifies one owner→spender approval.
type allowanceKey struct {
	owner   domain.Address
	spender domain.Address
}

// Options for creating an Engine.
type Options struct {
	// Token metadata, fixed at construction.
	Token domain.TokenInfo

	// Required components.
	AccessControl *accesscontrol.Registry
	Ledger        *ledger.SupplyLedger
	Exemptions    *exemption.Registry
	FeePolicy     *feepolicy.Policy

	// FeeCollector receives every charged fee. Must not be the null account.
	FeeCollector domain.Address

	// Recorder receives event records after each commit. Optional; nil
	// disables emission.
	Recorder events.Recorder

	// Metrics is optional.
	Metrics *observability.Metrics
}

// New validates the options and assembles the engine.
func New(opts Options) (*Engine, error) {
	if opts.AccessControl == nil || opts.Ledger == nil || opts.Exemptions == nil || opts.FeePolicy == nil {
		return nil, fmt.Errorf("%w: missing engine component", domain.ErrInvalidArgument)
	}
	if opts.FeeCollector.IsZero() {
		return nil, fmt.Errorf("%w: fee collector is the null account", domain.ErrInvalidArgument)
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = events.Nop{}
	}
	return &Engine{
		token:      opts.Token,
		acl:        opts.AccessControl,
		ledger:     opts.Ledger,
		exemptions: opts.Exemptions,
		fees:       opts.FeePolicy,
		collector:  opts.FeeCollector,
		recorder:   recorder,
		metrics:    opts.Metrics,
		allowances: make(map[allowanceKey]*big.Int),
	}, nil
}

// Token returns the immutable token metadata.
func (e *Engine) Token() domain.TokenInfo { return e.token }

// FeeCollector returns the configured fee collector account.
func (e *Engine) FeeCollector() domain.Address { return e.collector }

// BalanceOf returns the balance of an account.
func (e *Engine) BalanceOf(account domain.Address) *big.Int {
	return e.ledger.BalanceOf(account)
}

// TotalSupply returns the current total supply.
func (e *Engine) TotalSupply() *big.Int { return e.ledger.TotalSupply() }

// MaxSupply returns the immutable supply cap.
func (e *Engine) MaxSupply() *big.Int { return e.ledger.MaxSupply() }

// IsWhitelisted reports fee-exemption whitelist membership.
func (e *Engine) IsWhitelisted(account domain.Address) bool {
	return e.exemptions.IsWhitelisted(account)
}

// FeeWaiverThreshold returns the current fee waiver threshold.
func (e *Engine) FeeWaiverThreshold() *big.Int { return e.exemptions.Threshold() }

// HasRole reports role membership.
func (e *Engine) HasRole(role domain.Role, account domain.Address) bool {
	return e.acl.Has(role, account)
}

// LastSequence returns the sequence of the last emitted event.
func (e *Engine) LastSequence() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequence
}

// emit assigns the next sequence, derives the deterministic event ID, and
// hands the record to the recorder. Must be called with e.mu held so the
// journal order matches the commit order.
func (e *Engine) emit(ctx context.Context, record domain.EventRecord) {
	e.sequence++
	record.Sequence = e.sequence
	record.EventID = idhash.ComputeEventID(
		record.Sequence,
		record.Type,
		record.Initiator.String(),
		record.From.String(),
		record.To.String(),
		record.Amount,
		record.Timestamp,
	)
	// Recording failures are a sink concern; the mutation is committed.
	_ = e.recorder.Record(ctx, &record)

	if e.metrics != nil {
		e.metrics.EventsRecorded.Inc()
		e.metrics.LastEventEmitted.Set(float64(record.Timestamp) / 1000)
	}
}

// reject counts a failed call and returns its error unchanged.
func (e *Engine) reject(operation string, err error) error {
	if e.metrics != nil {
		e.metrics.CallsRejected.WithLabelValues(operation, errorType(err)).Inc()
	}
	return err
}

// errorType maps an error to its taxonomy label.
func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, domain.ErrSupplyCapExceeded):
		return "supply_cap_exceeded"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrInsufficientAllowance):
		return "insufficient_allowance"
	default:
		return "internal"
	}
}
