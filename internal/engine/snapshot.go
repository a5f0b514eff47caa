package engine

import (
	"fmt"
	"math/big"

	"bridged-token-ledger/internal/domain"
)

// Snapshot captures the full engine state at the current journal position.
func (e *Engine) Snapshot(now int64) *domain.LedgerSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	roles := make(map[string][]string, len(domain.KnownRoles))
	for _, role := range domain.KnownRoles {
		members := e.acl.Members(role)
		out := make([]string, len(members))
		for i, member := range members {
			out[i] = member.String()
		}
		roles[string(role)] = out
	}

	whitelisted := e.exemptions.Whitelisted()
	whitelist := make([]string, len(whitelisted))
	for i, account := range whitelisted {
		whitelist[i] = account.String()
	}

	allowances := make(map[string]string, len(e.allowances))
	for key, remaining := range e.allowances {
		allowances[key.owner.String()+"|"+key.spender.String()] = remaining.String()
	}

	return &domain.LedgerSnapshot{
		Sequence:    e.sequence,
		TakenAt:     now,
		TotalSupply: e.ledger.TotalSupply().String(),
		MaxSupply:   e.ledger.MaxSupply().String(),
		Balances:    e.ledger.Balances(),
		Roles:       roles,
		Whitelist:   whitelist,
		Threshold:   e.exemptions.Threshold().String(),
		Allowances:  allowances,
	}
}

// RestoreSnapshot replaces the engine state with a previously captured
// snapshot. Intended for startup and replay; it bypasses role guards and
// emits nothing.
func (e *Engine) RestoreSnapshot(snap *domain.LedgerSnapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ledger.Restore(snap.Balances, snap.TotalSupply); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}
	if err := e.acl.Restore(snap.Roles); err != nil {
		return fmt.Errorf("restore roles: %w", err)
	}
	if err := e.exemptions.Restore(snap.Whitelist, snap.Threshold); err != nil {
		return fmt.Errorf("restore exemptions: %w", err)
	}

	allowances := make(map[allowanceKey]*big.Int, len(snap.Allowances))
	for rawKey, rawAmount := range snap.Allowances {
		owner, spender, err := splitAllowanceKey(rawKey)
		if err != nil {
			return err
		}
		remaining, err := domain.ParseAmount(rawAmount)
		if err != nil {
			return fmt.Errorf("restore allowance %s: %w", rawKey, err)
		}
		if remaining.Sign() == 0 {
			continue
		}
		allowances[allowanceKey{owner: owner, spender: spender}] = remaining
	}
	e.allowances = allowances
	e.sequence = snap.Sequence
	return nil
}

// splitAllowanceKey parses the "owner|spender" snapshot form.
func splitAllowanceKey(raw string) (owner, spender domain.Address, err error) {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '|' {
			continue
		}
		owner, err = domain.ParseAddress(raw[:i])
		if err != nil {
			return "", "", fmt.Errorf("restore allowance owner: %w", err)
		}
		spender, err = domain.ParseAddress(raw[i+1:])
		if err != nil {
			return "", "", fmt.Errorf("restore allowance spender: %w", err)
		}
		return owner, spender, nil
	}
	return "", "", fmt.Errorf("%w: malformed allowance key %q", domain.ErrInvalidArgument, raw)
}
