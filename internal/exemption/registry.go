// Package exemption tracks which senders skip the transfer fee: admins,
// whitelisted addresses, and holders at or above the fee waiver threshold.
// Membership here only affects fee computation, never balances or supply.
package exemption

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	"bridged-token-ledger/internal/accesscontrol"
	"bridged-token-ledger/internal/domain"
)

// BalanceReader is the ledger view the registry needs for the threshold rule.
type BalanceReader interface {
	BalanceOf(account domain.Address) *big.Int
}

// Registry owns the whitelist and the fee waiver threshold.
type Registry struct {
	acl      *accesscontrol.Registry
	balances BalanceReader

	mu        sync.RWMutex
	whitelist map[domain.Address]struct{}
	threshold *big.Int
}

// NewRegistry creates a registry with an empty whitelist and the given
// initial threshold. The threshold must be positive.
func NewRegistry(acl *accesscontrol.Registry, balances BalanceReader, initialThreshold *big.Int) (*Registry, error) {
	if initialThreshold == nil || initialThreshold.Sign() <= 0 {
		return nil, fmt.Errorf("%w: fee waiver threshold must be positive", domain.ErrInvalidArgument)
	}
	return &Registry{
		acl:       acl,
		balances:  balances,
		whitelist: make(map[domain.Address]struct{}),
		threshold: new(big.Int).Set(initialThreshold),
	}, nil
}

// IsExempt reports whether a transfer initiated by caller moving value out of
// from skips the fee: the caller holds the admin role, or from is
// whitelisted, or from's balance is at or above the waiver threshold.
func (r *Registry) IsExempt(caller, from domain.Address) bool {
	if r.acl.Has(domain.RoleAdmin, caller) {
		return true
	}

	r.mu.RLock()
	_, listed := r.whitelist[from]
	threshold := r.threshold
	r.mu.RUnlock()

	if listed {
		return true
	}
	return r.balances.BalanceOf(from).Cmp(threshold) >= 0
}

// IsWhitelisted reports whitelist membership only, ignoring the threshold.
func (r *Registry) IsWhitelisted(account domain.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.whitelist[account]
	return ok
}

// Add whitelists an account. Requires the whitelist-manager role. Adding an
// already-listed account is a no-op success; the bool reports whether
// membership changed.
func (r *Registry) Add(caller, account domain.Address) (bool, error) {
	if account.IsZero() {
		return false, fmt.Errorf("%w: whitelist the null account", domain.ErrInvalidArgument)
	}
	if err := r.acl.Require(domain.RoleWhitelistManager, caller); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.whitelist[account]; ok {
		return false, nil
	}
	r.whitelist[account] = struct{}{}
	return true, nil
}

// Remove delists an account. Requires the whitelist-manager role.
func (r *Registry) Remove(caller, account domain.Address) (bool, error) {
	if account.IsZero() {
		return false, fmt.Errorf("%w: delist the null account", domain.ErrInvalidArgument)
	}
	if err := r.acl.Require(domain.RoleWhitelistManager, caller); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.whitelist[account]; !ok {
		return false, nil
	}
	delete(r.whitelist, account)
	return true, nil
}

// SetThreshold replaces the fee waiver threshold and returns the previous
// value for audit logging. Requires the admin role; the new threshold must be
// positive.
func (r *Registry) SetThreshold(caller domain.Address, threshold *big.Int) (*big.Int, error) {
	if threshold == nil || threshold.Sign() <= 0 {
		return nil, fmt.Errorf("%w: fee waiver threshold must be positive", domain.ErrInvalidArgument)
	}
	if err := r.acl.Require(domain.RoleAdmin, caller); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.threshold
	r.threshold = new(big.Int).Set(threshold)
	return prev, nil
}

// Threshold returns a copy of the current fee waiver threshold.
func (r *Registry) Threshold() *big.Int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.CloneAmount(r.threshold)
}

// Whitelisted returns the sorted whitelist members.
func (r *Registry) Whitelisted() []domain.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Address, 0, len(r.whitelist))
	for account := range r.whitelist {
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ApplyWhitelist sets or clears one whitelist entry without a role check.
// Used by journal replay only.
func (r *Registry) ApplyWhitelist(account domain.Address, listed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if listed {
		r.whitelist[account] = struct{}{}
	} else {
		delete(r.whitelist, account)
	}
}

// ApplyThreshold replaces the threshold without a role check. Used by journal
// replay only; the value must be positive.
func (r *Registry) ApplyThreshold(threshold *big.Int) error {
	if threshold == nil || threshold.Sign() <= 0 {
		return fmt.Errorf("%w: fee waiver threshold must be positive", domain.ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threshold = new(big.Int).Set(threshold)
	return nil
}

// Restore replaces the whitelist and threshold from snapshot form. Used by
// replay only; it bypasses role checks.
func (r *Registry) Restore(whitelist []string, threshold string) error {
	next := make(map[domain.Address]struct{}, len(whitelist))
	for _, raw := range whitelist {
		account, err := domain.ParseAddress(raw)
		if err != nil {
			return fmt.Errorf("restore whitelist entry: %w", err)
		}
		next[account] = struct{}{}
	}
	value, err := domain.ParseAmount(threshold)
	if err != nil {
		return fmt.Errorf("restore threshold: %w", err)
	}
	if value.Sign() <= 0 {
		return fmt.Errorf("%w: restored threshold must be positive", domain.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.whitelist = next
	r.threshold = value
	return nil
}
