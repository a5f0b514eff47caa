package engine

import (
	"context"
	"fmt"
	"math/big"

	"bridged-token-ledger/internal/domain"
)

// Mint credits newly bridged-in value to an account. The caller must hold
// MINT_ROLE; this is the only way external bridging infrastructure
// materializes a cross-chain transfer locally.
func (e *Engine) Mint(ctx context.Context, caller, to domain.Address, amount *big.Int, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.acl.Require(domain.RoleMinter, caller); err != nil {
		return e.reject("mint", err)
	}
	if err := e.route(ctx, caller, domain.ZeroAddress, to, amount, now); err != nil {
		return e.reject("mint", err)
	}
	e.emit(ctx, domain.EventRecord{
		Type:      domain.EventMinted,
		Initiator: caller,
		To:        to,
		Amount:    domain.FormatAmount(amount),
		Timestamp: now,
	})
	if e.metrics != nil {
		e.metrics.MintsTotal.Inc()
	}
	return nil
}

// Burn destroys value that is leaving for the paired chain. The caller must
// hold BURN_ROLE.
func (e *Engine) Burn(ctx context.Context, caller, from domain.Address, amount *big.Int, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.acl.Require(domain.RoleBurner, caller); err != nil {
		return e.reject("burn", err)
	}
	if err := e.route(ctx, caller, from, domain.ZeroAddress, amount, now); err != nil {
		return e.reject("burn", err)
	}
	e.emit(ctx, domain.EventRecord{
		Type:      domain.EventBurned,
		Initiator: caller,
		From:      from,
		Amount:    domain.FormatAmount(amount),
		Timestamp: now,
	})
	if e.metrics != nil {
		e.metrics.BurnsTotal.Inc()
	}
	return nil
}

// Transfer moves value from the caller to another account, subject to the
// routing pipeline. now is the externally supplied clock reading (unix ms)
// used for the antibot-window comparison.
func (e *Engine) Transfer(ctx context.Context, caller, to domain.Address, amount *big.Int, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validateEndpoints(caller, to); err != nil {
		return e.reject("transfer", err)
	}
	if err := e.route(ctx, caller, caller, to, amount, now); err != nil {
		return e.reject("transfer", err)
	}
	return nil
}

// TransferFrom moves value on behalf of from, spending the caller's
// allowance. The allowance is decremented only when the whole call commits.
func (e *Engine) TransferFrom(ctx context.Context, caller, from, to domain.Address, amount *big.Int, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validateEndpoints(from, to); err != nil {
		return e.reject("transfer_from", err)
	}
	if amount == nil || amount.Sign() <= 0 {
		return e.reject("transfer_from", fmt.Errorf("%w: transfer amount must be positive", domain.ErrInvalidArgument))
	}

	key := allowanceKey{owner: from, spender: caller}
	remaining, ok := e.allowances[key]
	if !ok || remaining.Cmp(amount) < 0 {
		held := new(big.Int)
		if ok {
			held = remaining
		}
		return e.reject("transfer_from", fmt.Errorf("%w: %s approved %s, needs %s",
			domain.ErrInsufficientAllowance, caller, held, amount))
	}

	if err := e.route(ctx, caller, from, to, amount, now); err != nil {
		return e.reject("transfer_from", err)
	}
	remaining.Sub(remaining, amount)
	if remaining.Sign() == 0 {
		delete(e.allowances, key)
	}
	// The decrement must land in the journal or a rebuilt engine would
	// restore the pre-spend approval.
	e.emit(ctx, domain.EventRecord{
		Type:      domain.EventApprovalSet,
		Initiator: caller,
		From:      from,
		To:        caller,
		Amount:    domain.FormatAmount(remaining),
		Timestamp: now,
	})
	return nil
}

// Approve sets the caller's allowance for spender, replacing any previous
// value. A zero amount clears the approval.
func (e *Engine) Approve(ctx context.Context, caller, spender domain.Address, amount *big.Int, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller.IsZero() || spender.IsZero() {
		return e.reject("approve", fmt.Errorf("%w: approve involving the null account", domain.ErrInvalidArgument))
	}
	if amount == nil || amount.Sign() < 0 {
		return e.reject("approve", fmt.Errorf("%w: negative approval", domain.ErrInvalidArgument))
	}

	key := allowanceKey{owner: caller, spender: spender}
	if amount.Sign() == 0 {
		delete(e.allowances, key)
	} else {
		e.allowances[key] = new(big.Int).Set(amount)
	}
	e.emit(ctx, domain.EventRecord{
		Type:      domain.EventApprovalSet,
		Initiator: caller,
		From:      caller,
		To:        spender,
		Amount:    domain.FormatAmount(amount),
		Timestamp: now,
	})
	return nil
}

// Allowance returns the remaining approval from owner to spender.
func (e *Engine) Allowance(owner, spender domain.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.CloneAmount(e.allowances[allowanceKey{owner: owner, spender: spender}])
}

// validateEndpoints rejects null endpoints on the public transfer surface.
// Zero-endpoint movements exist only behind the mint/burn role guards.
func (e *Engine) validateEndpoints(from, to domain.Address) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: transfer involving the null account", domain.ErrInvalidArgument)
	}
	return nil
}

// route is the core state machine. Per call it evaluates, in order, the
// mint/burn path, the exempt path, and the fee path; the first matching path
// is terminal. All preconditions are checked before any ledger mutation, so a
// failure leaves no partial state. Must be called with e.mu held.
func (e *Engine) route(ctx context.Context, caller, from, to domain.Address, amount *big.Int, now int64) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument)
	}

	// Path 1: zero endpoint bypasses fees entirely; the movement is a
	// supply mutation, not a balance move.
	if from.IsZero() {
		if err := e.ledger.Mint(to, amount); err != nil {
			return err
		}
		e.emitTransfer(ctx, caller, from, to, amount, now)
		return nil
	}
	if to.IsZero() {
		if err := e.ledger.Burn(from, amount); err != nil {
			return err
		}
		e.emitTransfer(ctx, caller, from, to, amount, now)
		return nil
	}

	// Path 2: exempt senders move the full amount.
	if e.exemptions.IsExempt(caller, from) {
		if err := e.ledger.MoveValue(from, to, amount); err != nil {
			return err
		}
		e.emitTransfer(ctx, caller, from, to, amount, now)
		if e.metrics != nil {
			e.metrics.TransfersExempt.Inc()
		}
		return nil
	}

	// Path 3: fee path. Validate the full debit before mutating so the two
	// sub-movements commit as one unit.
	fee, rest := e.fees.ComputeFee(caller, from, to, amount, now)
	if !e.ledger.CanMove(from, amount) {
		return fmt.Errorf("%w: %s cannot cover transfer of %s",
			domain.ErrInsufficientBalance, from, amount)
	}
	if fee.Sign() > 0 {
		if err := e.ledger.MoveValue(from, e.collector, fee); err != nil {
			return err
		}
		e.emit(ctx, domain.EventRecord{
			Type:      domain.EventFeeCharged,
			Initiator: caller,
			From:      from,
			To:        to,
			Amount:    domain.FormatAmount(fee),
			Timestamp: now,
		})
		if e.metrics != nil {
			e.metrics.FeesCharged.Inc()
		}
	}
	if err := e.ledger.MoveValue(from, to, rest); err != nil {
		return err
	}
	e.emitTransfer(ctx, caller, from, to, rest, now)
	return nil
}

// emitTransfer records a TransferCompleted for the amount actually delivered.
func (e *Engine) emitTransfer(ctx context.Context, caller, from, to domain.Address, amount *big.Int, now int64) {
	e.emit(ctx, domain.EventRecord{
		Type:      domain.EventTransferCompleted,
		Initiator: caller,
		From:      from,
		To:        to,
		Amount:    domain.FormatAmount(amount),
		Timestamp: now,
	})
	if e.metrics != nil {
		e.metrics.TransfersCompleted.Inc()
	}
}
