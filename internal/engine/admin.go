package engine

import (
	"context"
	"math/big"

	"bridged-token-ledger/internal/domain"
)

// AddToWhitelist marks an account fee-exempt. Requires WHITELIST_MANAGER_ROLE.
func (e *Engine) AddToWhitelist(ctx context.Context, caller, account domain.Address, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	changed, err := e.exemptions.Add(caller, account)
	if err != nil {
		return e.reject("whitelist_add", err)
	}
	if !changed {
		return nil
	}
	e.emit(ctx, domain.EventRecord{
		Type:      domain.EventAddressWhitelisted,
		Initiator: caller,
		To:        account,
		Timestamp: now,
	})
	if e.metrics != nil {
		e.metrics.WhitelistUpdates.WithLabelValues("add").Inc()
	}
	return nil
}

// RemoveFromWhitelist clears an account's fee exemption. Requires
// WHITELIST_MANAGER_ROLE.
func (e *Engine) RemoveFromWhitelist(ctx context.Context, caller, account domain.Address, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	changed, err := e.exemptions.Remove(caller, account)
	if err != nil {
		return e.reject("whitelist_remove", err)
	}
	if !changed {
		return nil
	}
	e.emit(ctx, domain.EventRecord{
		Type:      domain.EventAddressRemovedFromWhitelist,
		Initiator: caller,
		To:        account,
		Timestamp: now,
	})
	if e.metrics != nil {
		e.metrics.WhitelistUpdates.WithLabelValues("remove").Inc()
	}
	return nil
}

// UpdateFeeWaiverThreshold replaces the waiver threshold, returning the
// previous value for audit logging. Requires ADMIN_ROLE; the new threshold
// must be positive.
func (e *Engine) UpdateFeeWaiverThreshold(ctx context.Context, caller domain.Address, threshold *big.Int, now int64) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, err := e.exemptions.SetThreshold(caller, threshold)
	if err != nil {
		return nil, e.reject("threshold_update", err)
	}
	e.emit(ctx, domain.EventRecord{
		Type:      domain.EventFeeWaiverThresholdUpdated,
		Initiator: caller,
		Amount:    domain.FormatAmount(threshold),
		PrevValue: domain.FormatAmount(prev),
		Timestamp: now,
	})
	if e.metrics != nil {
		e.metrics.ThresholdUpdates.Inc()
	}
	return prev, nil
}

// GrantRole adds account to role. The caller must hold the role's admin role.
// Granting an already-held role commits without emitting a record.
func (e *Engine) GrantRole(ctx context.Context, caller domain.Address, role domain.Role, account domain.Address, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	changed, err := e.acl.Grant(caller, role, account)
	if err != nil {
		return e.reject("role_grant", err)
	}
	if !changed {
		return nil
	}
	e.emit(ctx, domain.EventRecord{
		Type:      domain.EventRoleGranted,
		Initiator: caller,
		To:        account,
		Role:      role,
		Timestamp: now,
	})
	if e.metrics != nil {
		e.metrics.RoleUpdates.WithLabelValues("grant").Inc()
	}
	return nil
}

// RevokeRole removes account from role. The caller must hold the role's
// admin role.
func (e *Engine) RevokeRole(ctx context.Context, caller domain.Address, role domain.Role, account domain.Address, now int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	changed, err := e.acl.Revoke(caller, role, account)
	if err != nil {
		return e.reject("role_revoke", err)
	}
	if !changed {
		return nil
	}
	e.emit(ctx, domain.EventRecord{
		Type:      domain.EventRoleRevoked,
		Initiator: caller,
		To:        account,
		Role:      role,
		Timestamp: now,
	})
	if e.metrics != nil {
		e.metrics.RoleUpdates.WithLabelValues("revoke").Inc()
	}
	return nil
}
