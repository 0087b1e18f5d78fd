package authz

// Requirement is the gate on a route. Tokens may name roles or permissions;
// the engine splits them when evaluating. A route with no requirement is
// unrestricted.
type Requirement struct {
	Tokens []string
}

// roleTokens and permissionTokens split a requirement by token kind.
func (r Requirement) roleTokens() []string {
	var out []string
	for _, t := range r.Tokens {
		if IsRole(t) {
			out = append(out, t)
		}
	}
	return out
}

func (r Requirement) permissionTokens() []string {
	var out []string
	for _, t := range r.Tokens {
		if !IsRole(t) {
			out = append(out, t)
		}
	}
	return out
}

// Route identifiers used by the storefront and admin surfaces.
const (
	RouteCatalog        = "catalog"
	RouteProductDetail  = "catalog.product"
	RouteFavorites      = "account.favorites"
	RouteOrders         = "account.orders"
	RouteAdminDashboard = "admin.dashboard"
	RouteAdminUsers     = "admin.users"
	RouteAdminProducts  = "admin.products"
	RouteAdminAuditLogs = "admin.audit_logs"
	RouteVendorStore    = "vendor.store"
)

// DefaultRouteRequirements is the static route gating table. Browse routes
// carry permission tokens only so they stay reachable for anonymous actors.
func DefaultRouteRequirements() map[string]Requirement {
	return map[string]Requirement{
		RouteCatalog:        {Tokens: []string{PermViewProducts}},
		RouteProductDetail:  {Tokens: []string{PermViewProducts}},
		RouteFavorites:      {Tokens: []string{PermViewFavorites}},
		RouteOrders:         {Tokens: []string{PermViewOrders}},
		RouteAdminDashboard: {Tokens: []string{RoleAdmin, RoleSuperAdmin, PermViewDashboard}},
		RouteAdminUsers:     {Tokens: []string{RoleAdmin, RoleSuperAdmin, PermManageUsers}},
		RouteAdminProducts:  {Tokens: []string{RoleAdmin, RoleSuperAdmin, PermManageProducts}},
		RouteAdminAuditLogs: {Tokens: []string{RoleSuperAdmin}},
		RouteVendorStore:    {Tokens: []string{RoleStoreOwner, PermManageStores}},
	}
}
