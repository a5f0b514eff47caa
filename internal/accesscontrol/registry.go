// Package accesscontrol provides role membership bookkeeping and the guard
// checks that gate every privileged ledger operation.
package accesscontrol

import (
	"fmt"
	"sort"
	"sync"

	"bridged-token-ledger/internal/domain"
)

// Registry tracks which addresses hold which roles. Each role is administered
// by an admin role; by default every role, including the admin role itself, is
// administered by domain.RoleAdmin.
type Registry struct {
	mu      sync.RWMutex
	members map[domain.Role]map[domain.Address]struct{}
	admins  map[domain.Role]domain.Role // role → its admin role
}

// NewRegistry creates a registry with initialAdmin holding the admin role.
func NewRegistry(initialAdmin domain.Address) (*Registry, error) {
	if initialAdmin.IsZero() {
		return nil, fmt.Errorf("%w: initial admin is the null account", domain.ErrInvalidArgument)
	}
	r := &Registry{
		members: make(map[domain.Role]map[domain.Address]struct{}),
		admins:  make(map[domain.Role]domain.Role),
	}
	r.members[domain.RoleAdmin] = map[domain.Address]struct{}{initialAdmin: {}}
	return r, nil
}

// AdminRole returns the role that administers the given role.
func (r *Registry) AdminRole(role domain.Role) domain.Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if admin, ok := r.admins[role]; ok {
		return admin
	}
	return domain.RoleAdmin
}

// Has reports whether account holds role.
func (r *Registry) Has(role domain.Role, account domain.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[role][account]
	return ok
}

// Require fails with ErrUnauthorized when caller lacks role. It has no side
// effect beyond the check.
func (r *Registry) Require(role domain.Role, caller domain.Address) error {
	if !r.Has(role, caller) {
		return fmt.Errorf("%w: %s lacks %s", domain.ErrUnauthorized, caller, role)
	}
	return nil
}

// Grant adds account to role. The caller must hold the role's admin role.
// Granting an already-held role is a no-op success; the returned bool reports
// whether membership actually changed.
func (r *Registry) Grant(caller domain.Address, role domain.Role, account domain.Address) (bool, error) {
	if account.IsZero() {
		return false, fmt.Errorf("%w: grant to the null account", domain.ErrInvalidArgument)
	}
	if err := r.Require(r.AdminRole(role), caller); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[role]
	if !ok {
		set = make(map[domain.Address]struct{})
		r.members[role] = set
	}
	if _, held := set[account]; held {
		return false, nil
	}
	set[account] = struct{}{}
	return true, nil
}

// Revoke removes account from role. The caller must hold the role's admin
// role. Revoking a role the account does not hold is a no-op success.
func (r *Registry) Revoke(caller domain.Address, role domain.Role, account domain.Address) (bool, error) {
	if account.IsZero() {
		return false, fmt.Errorf("%w: revoke from the null account", domain.ErrInvalidArgument)
	}
	if err := r.Require(r.AdminRole(role), caller); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[role]
	if !ok {
		return false, nil
	}
	if _, held := set[account]; !held {
		return false, nil
	}
	delete(set, account)
	return true, nil
}

// Members returns the sorted member addresses of role.
func (r *Registry) Members(role domain.Role) []domain.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Address, 0, len(r.members[role]))
	for account := range r.members[role] {
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ApplyMembership sets or clears one membership without an admin check.
// Used by journal replay only, where the grant was already authorized when
// the event committed.
func (r *Registry) ApplyMembership(role domain.Role, account domain.Address, member bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[role]
	if !ok {
		if !member {
			return
		}
		set = make(map[domain.Address]struct{})
		r.members[role] = set
	}
	if member {
		set[account] = struct{}{}
	} else {
		delete(set, account)
	}
}

// Restore replaces all role memberships from a snapshot. Used by replay only;
// it bypasses admin checks.
func (r *Registry) Restore(roles map[string][]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := make(map[domain.Role]map[domain.Address]struct{}, len(roles))
	for role, accounts := range roles {
		set := make(map[domain.Address]struct{}, len(accounts))
		for _, raw := range accounts {
			account, err := domain.ParseAddress(raw)
			if err != nil {
				return fmt.Errorf("restore role %s: %w", role, err)
			}
			set[account] = struct{}{}
		}
		members[domain.Role(role)] = set
	}
	r.members = members
	return nil
}
