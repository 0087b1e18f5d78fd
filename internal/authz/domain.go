package authz

import "time"

// Status describes where the actor sits in the session lifecycle.
type Status string

const (
	// StatusAnonymous is the initial state, before any session probe.
	StatusAnonymous Status = "anonymous"
	// StatusAuthenticating means a probe or credential submission is in flight.
	StatusAuthenticating Status = "authenticating"
	// StatusGuest means a probe completed and found no valid session; the
	// actor proceeds browsing-only.
	StatusGuest Status = "guest"
	// StatusAuthenticated means the system of record vouched for the actor.
	StatusAuthenticated Status = "authenticated"
)

// Identity is the authenticated actor's profile record.
type Identity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Subscription is an optional entitlement record consumed by business-rule
// checks outside this package.
type Subscription struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Actor is the authorization subject. Authenticated implies a non-nil
// Identity; Anonymous and Guest imply empty roles, permissions and identity.
type Actor struct {
	Status       Status        `json:"status"`
	Identity     *Identity     `json:"identity,omitempty"`
	Roles        []string      `json:"roles,omitempty"`
	Permissions  []string      `json:"permissions,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// Anonymous returns a cleared actor in the given browsing-only status.
func Anonymous(status Status) Actor {
	return Actor{Status: status}
}

// IsBrowsingOnly reports whether the actor is anonymous or guest.
func (a Actor) IsBrowsingOnly() bool {
	return a.Status == StatusAnonymous || a.Status == StatusGuest
}

// HasRoleLiteral reports raw role-set membership, with no override rules.
func (a Actor) HasRoleLiteral(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermissionLiteral reports raw permission-set membership, with no
// override rules.
func (a Actor) HasPermissionLiteral(perm string) bool {
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Role names recognised by the engine.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleStoreOwner = "store_owner"
	RoleCustomer   = "customer"
)

var roleRanks = map[string]int{
	RoleSuperAdmin: 4,
	RoleAdmin:      3,
	RoleStoreOwner: 2,
	RoleCustomer:   1,
}

// RoleRank returns the fixed precedence of a role, highest first. The rank is
// informational ("higher privilege than" displays); authorization decisions
// go through the explicit override rules in the engine, never through rank
// comparison.
func RoleRank(role string) int {
	return roleRanks[role]
}

// IsRole reports whether name is a recognised role rather than a permission.
func IsRole(name string) bool {
	_, ok := roleRanks[name]
	return ok
}
