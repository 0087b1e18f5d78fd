package authz

import "testing"

func superAdminActor() Actor {
	return Actor{
		Status:   StatusAuthenticated,
		Identity: &Identity{ID: 1, Name: "Root", Email: "root@meridian.test"},
		Roles:    []string{RoleSuperAdmin},
	}
}

func adminActor() Actor {
	return Actor{
		Status:   StatusAuthenticated,
		Identity: &Identity{ID: 2, Name: "Ops", Email: "ops@meridian.test"},
		Roles:    []string{RoleAdmin},
	}
}

func customerActor(perms ...string) Actor {
	return Actor{
		Status:      StatusAuthenticated,
		Identity:    &Identity{ID: 3, Name: "Shopper", Email: "shopper@meridian.test"},
		Roles:       []string{RoleCustomer},
		Permissions: perms,
	}
}

func TestSuperAdminPassesEveryCheck(t *testing.T) {
	engine := NewEngine()
	actor := superAdminActor()

	checks := []Check{
		RoleCheck{Roles: []string{RoleSuperAdmin}},
		RoleCheck{Roles: []string{RoleAdmin, RoleStoreOwner}, All: true},
		PermissionCheck{Permissions: []string{PermManageUsers}},
		PermissionCheck{Permissions: []string{"delete_orders", "manage_taxes"}, All: true},
		RouteCheck{Route: RouteAdminDashboard},
		RouteCheck{Route: RouteAdminAuditLogs},
		RouteCheck{Route: RouteVendorStore},
	}
	for i, check := range checks {
		if !engine.Can(actor, check) {
			t.Fatalf("check %d: expected super admin to pass %#v", i, check)
		}
	}
}

func TestAdminOverrideIsAsymmetric(t *testing.T) {
	engine := NewEngine()
	actor := adminActor()

	if engine.Can(actor, RoleCheck{Roles: []string{RoleSuperAdmin}}) {
		t.Fatalf("admin must not satisfy an explicit super_admin role check")
	}
	if !engine.Can(actor, RoleCheck{Roles: []string{RoleStoreOwner}}) {
		t.Fatalf("admin should pass non-super-admin role checks")
	}
	if !engine.Can(actor, PermissionCheck{Permissions: []string{PermManageUsers}}) {
		t.Fatalf("admin should pass every permission check")
	}
	if !engine.Can(actor, PermissionCheck{Permissions: []string{"delete_audit_logs"}}) {
		t.Fatalf("admin permission override has no super-admin carve-out")
	}
	if engine.Can(actor, RouteCheck{Route: RouteAdminAuditLogs}) {
		t.Fatalf("admin must not reach a super-admin-only route")
	}
	if !engine.Can(actor, RouteCheck{Route: RouteAdminDashboard}) {
		t.Fatalf("admin should reach the admin dashboard")
	}
}

func TestAnonymousAndGuestFollowAllowList(t *testing.T) {
	engine := NewEngine()
	for _, status := range []Status{StatusAnonymous, StatusGuest} {
		actor := Anonymous(status)

		for _, perm := range AnonymousAllowList() {
			if !engine.HasPermission(actor, perm) {
				t.Fatalf("%s: expected allow-list permission %q", status, perm)
			}
		}
		denied := []string{
			PermManageUsers,
			"create_products",
			"update_orders",
			"delete_comments",
			"edit_articles",
			PermViewOrders, // not in the allow-list
		}
		for _, perm := range denied {
			if engine.HasPermission(actor, perm) {
				t.Fatalf("%s: permission %q must be denied", status, perm)
			}
		}
		if engine.HasRole(actor, RoleCustomer) {
			t.Fatalf("%s: role checks must always fail", status)
		}
		if !engine.Can(actor, RouteCheck{Route: RouteCatalog}) {
			t.Fatalf("%s: public catalog route must stay reachable", status)
		}
		if engine.Can(actor, RouteCheck{Route: RouteAdminDashboard}) {
			t.Fatalf("%s: admin route must be denied", status)
		}
		if engine.Can(actor, RouteCheck{Route: RouteAdminAuditLogs}) {
			t.Fatalf("%s: role-only route must be denied", status)
		}
	}
}

func TestLiteralMembershipForRegularActors(t *testing.T) {
	engine := NewEngine()
	actor := customerActor(PermViewOrders, "view_favorites")

	if !engine.HasRole(actor, RoleCustomer) {
		t.Fatalf("expected literal role membership to hold")
	}
	if engine.HasRole(actor, RoleStoreOwner) {
		t.Fatalf("unheld role must evaluate false")
	}
	if !engine.HasPermission(actor, PermViewOrders) {
		t.Fatalf("expected granted permission to hold")
	}
	if engine.HasPermission(actor, PermManageUsers) {
		t.Fatalf("ungranted permission must evaluate false")
	}
	if engine.HasPermission(actor, "totally_unknown_permission") {
		t.Fatalf("unknown permission names evaluate to not held, not an error")
	}
	if !engine.Can(actor, RouteCheck{Route: RouteOrders}) {
		t.Fatalf("customer with view_orders should reach the orders route")
	}
	if engine.Can(actor, RouteCheck{Route: RouteAdminUsers}) {
		t.Fatalf("customer must not reach admin users")
	}
}

func TestRouteWithBothTokenKindsRequiresBoth(t *testing.T) {
	engine := NewEngine()

	// store_owner without the permission: role branch passes, permission
	// branch fails.
	owner := Actor{
		Status:   StatusAuthenticated,
		Identity: &Identity{ID: 9},
		Roles:    []string{RoleStoreOwner},
	}
	if engine.Can(owner, RouteCheck{Route: RouteVendorStore}) {
		t.Fatalf("route with role and permission tokens requires both branches")
	}
	owner.Permissions = []string{PermManageStores}
	if !engine.Can(owner, RouteCheck{Route: RouteVendorStore}) {
		t.Fatalf("expected store owner with manage_stores to pass")
	}
}

func TestUnrestrictedRouteIsReachable(t *testing.T) {
	engine := NewEngine()
	if !engine.Can(Anonymous(StatusGuest), RouteCheck{Route: "checkout.help"}) {
		t.Fatalf("routes without a requirement entry are unrestricted")
	}
}

func TestCompositesRouteThroughBaseDecisions(t *testing.T) {
	engine := NewEngine()
	actor := customerActor(PermViewOrders)

	if !engine.HasAnyPermission(actor, []string{PermManageUsers, PermViewOrders}) {
		t.Fatalf("hasAnyPermission should find the granted entry")
	}
	if engine.HasAllPermissions(actor, []string{PermManageUsers, PermViewOrders}) {
		t.Fatalf("hasAllPermissions should fail on the ungranted entry")
	}
	if !engine.HasAnyRole(adminActor(), []string{RoleStoreOwner, RoleCustomer}) {
		t.Fatalf("admin override should flow through hasAnyRole")
	}
	// Literal behavior preserved: admin passes hasAllRoles over any set of
	// non-super-admin roles.
	if !engine.HasAllRoles(adminActor(), []string{RoleStoreOwner, RoleCustomer}) {
		t.Fatalf("admin passes all non-super-admin role checks")
	}
	if engine.HasAllRoles(adminActor(), []string{RoleStoreOwner, RoleSuperAdmin}) {
		t.Fatalf("hasAllRoles including super_admin must fail for admin")
	}
}

func TestCanManageAndCanView(t *testing.T) {
	engine := NewEngine()

	editor := customerActor("edit_products")
	if !engine.CanManage(editor, ResourceProducts) {
		t.Fatalf("edit permission should grant manage capability")
	}
	if engine.CanManage(editor, ResourceOrders) {
		t.Fatalf("manage capability must not leak across resources")
	}

	viewer := customerActor(PermViewProducts)
	if engine.CanManage(viewer, ResourceProducts) {
		t.Fatalf("view permission must not grant manage capability")
	}
	if !engine.CanView(viewer, ResourceProducts) {
		t.Fatalf("expected canonical view permission to grant view")
	}

	reader := customerActor("read_orders")
	if !engine.CanView(reader, ResourceOrders) {
		t.Fatalf("read_ prefix counts as the canonical view permission")
	}

	if !engine.CanManage(adminActor(), ResourceTaxes) {
		t.Fatalf("admin override should flow through canManage")
	}
	if engine.CanManage(Anonymous(StatusGuest), ResourceProducts) {
		t.Fatalf("guests never hold manage capability")
	}
}
