// Package ledger owns account balances and the supply counters. It is the
// only component that mutates balances; the transfer engine drives it and
// never touches balance state directly.
package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"bridged-token-ledger/internal/domain"
)

// SupplyLedger holds per-account balances, the total supply, and the
// immutable max-supply cap. Accounts are created implicitly on first credit;
// a zero balance is a valid terminal state, not deletion.
type SupplyLedger struct {
	mu          sync.RWMutex
	balances    map[domain.Address]*big.Int
	totalSupply *big.Int
	maxSupply   *big.Int
}

// NewSupplyLedger creates an empty ledger with the given cap.
func NewSupplyLedger(maxSupply *big.Int) (*SupplyLedger, error) {
	if maxSupply == nil || maxSupply.Sign() <= 0 {
		return nil, fmt.Errorf("%w: max supply must be positive", domain.ErrInvalidArgument)
	}
	return &SupplyLedger{
		balances:    make(map[domain.Address]*big.Int),
		totalSupply: new(big.Int),
		maxSupply:   new(big.Int).Set(maxSupply),
	}, nil
}

// BalanceOf returns a copy of the account balance. Unknown accounts have a
// zero balance.
func (l *SupplyLedger) BalanceOf(account domain.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.CloneAmount(l.balances[account])
}

// TotalSupply returns a copy of the current total supply.
func (l *SupplyLedger) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.CloneAmount(l.totalSupply)
}

// MaxSupply returns a copy of the immutable supply cap.
func (l *SupplyLedger) MaxSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.CloneAmount(l.maxSupply)
}

// Mint credits amount to account and grows the total supply. Fails with
// ErrInvalidArgument on a null account or non-positive amount, and with
// ErrSupplyCapExceeded when the cap would be exceeded. No state changes on
// failure.
func (l *SupplyLedger) Mint(to domain.Address, amount *big.Int) error {
	if to.IsZero() {
		return fmt.Errorf("%w: mint to the null account", domain.ErrInvalidArgument)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: mint amount must be positive", domain.ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := new(big.Int).Add(l.totalSupply, amount)
	if next.Cmp(l.maxSupply) > 0 {
		return fmt.Errorf("%w: supply %s + %s exceeds cap %s",
			domain.ErrSupplyCapExceeded, l.totalSupply, amount, l.maxSupply)
	}
	l.credit(to, amount)
	l.totalSupply = next
	return nil
}

// Burn debits amount from account and shrinks the total supply. Fails with
// ErrInvalidArgument on a null account or non-positive amount, and with
// ErrInsufficientBalance when the account balance is too low. No state
// changes on failure.
func (l *SupplyLedger) Burn(from domain.Address, amount *big.Int) error {
	if from.IsZero() {
		return fmt.Errorf("%w: burn from the null account", domain.ErrInvalidArgument)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: burn amount must be positive", domain.ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.totalSupply = new(big.Int).Sub(l.totalSupply, amount)
	return nil
}

// MoveValue debits from and credits to without touching the supply counters.
// It is the internal primitive behind every transfer; the value already
// exists in supply, so no cap check applies.
func (l *SupplyLedger) MoveValue(from, to domain.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: negative move amount", domain.ErrInvalidArgument)
	}
	if amount.Sign() == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

// CanMove reports without mutation whether from holds at least amount.
func (l *SupplyLedger) CanMove(from domain.Address, amount *big.Int) bool {
	if amount == nil || amount.Sign() < 0 {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	bal, ok := l.balances[from]
	if !ok {
		return amount.Sign() == 0
	}
	return bal.Cmp(amount) >= 0
}

// credit must be called with the write lock held.
func (l *SupplyLedger) credit(account domain.Address, amount *big.Int) {
	bal, ok := l.balances[account]
	if !ok {
		bal = new(big.Int)
		l.balances[account] = bal
	}
	bal.Add(bal, amount)
}

// debit must be called with the write lock held.
func (l *SupplyLedger) debit(account domain.Address, amount *big.Int) error {
	bal, ok := l.balances[account]
	if !ok || bal.Cmp(amount) < 0 {
		held := new(big.Int)
		if ok {
			held = bal
		}
		return fmt.Errorf("%w: %s holds %s, needs %s",
			domain.ErrInsufficientBalance, account, held, amount)
	}
	bal.Sub(bal, amount)
	return nil
}

// Balances returns a copy of all non-zero balances as decimal strings.
func (l *SupplyLedger) Balances() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]string, len(l.balances))
	for account, bal := range l.balances {
		if bal.Sign() == 0 {
			continue
		}
		out[account.String()] = bal.String()
	}
	return out
}

// Restore replaces all balances and the total supply from snapshot form.
// Fails if the balances do not sum to the supply or the supply exceeds the
// cap; the ledger is left unchanged on failure.
func (l *SupplyLedger) Restore(balances map[string]string, totalSupply string) error {
	supply, err := domain.ParseAmount(totalSupply)
	if err != nil {
		return fmt.Errorf("restore total supply: %w", err)
	}

	next := make(map[domain.Address]*big.Int, len(balances))
	sum := new(big.Int)
	for raw, amount := range balances {
		account, err := domain.ParseAddress(raw)
		if err != nil {
			return fmt.Errorf("restore balance account: %w", err)
		}
		bal, err := domain.ParseAmount(amount)
		if err != nil {
			return fmt.Errorf("restore balance of %s: %w", account, err)
		}
		next[account] = bal
		sum.Add(sum, bal)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if sum.Cmp(supply) != 0 {
		return fmt.Errorf("%w: balances sum to %s, supply says %s", domain.ErrInvalidArgument, sum, supply)
	}
	if supply.Cmp(l.maxSupply) > 0 {
		return fmt.Errorf("%w: restored supply %s above cap %s", domain.ErrSupplyCapExceeded, supply, l.maxSupply)
	}
	l.balances = next
	l.totalSupply = supply
	return nil
}
