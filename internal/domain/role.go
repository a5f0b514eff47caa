package domain

// Role is a named capability granted to specific addresses.
type Role string

// Role identifiers.
const (
	RoleAdmin            Role = "ADMIN_ROLE"
	RoleMinter           Role = "MINT_ROLE"
	RoleBurner           Role = "BURN_ROLE"
	RoleWhitelistManager Role = "WHITELIST_MANAGER_ROLE"
)

// KnownRoles lists every role the engine manages, in grant-display order.
var KnownRoles = []Role{RoleAdmin, RoleMinter, RoleBurner, RoleWhitelistManager}
