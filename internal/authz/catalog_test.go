package authz

import "testing"

func TestPermissionAction(t *testing.T) {
	cases := []struct {
		name string
		want Action
	}{
		{"read_orders", ActionRead},
		{"create_products", ActionCreate},
		{"update_taxes", ActionUpdate},
		{"delete_comments", ActionDelete},
		{"view_dashboard", ActionView},
		{"edit_articles", ActionEdit},
		{"manage_users", ActionManage},
		{"approve_returns", ActionUnknown},
		{"viewer_stats", ActionUnknown}, // prefix must end at an underscore
		{"", ActionUnknown},
	}
	for _, tc := range cases {
		if got := PermissionAction(tc.name); got != tc.want {
			t.Errorf("PermissionAction(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPermissionResource(t *testing.T) {
	cases := []struct {
		name string
		want Resource
	}{
		{"view_products", ResourceProducts},
		{"manage_audit_logs", ResourceAuditLogs},
		// the more specific name wins over its substring
		{"view_subcategories", ResourceSubcategories},
		{"view_categories", ResourceCategories},
		{"manage_stores", ResourceStores},
		{"export_orders_report", ResourceOrders}, // substring match, not exact suffix
		{"approve_weird_thing", ResourceOther},
		{"", ResourceOther},
	}
	for _, tc := range cases {
		if got := PermissionResource(tc.name); got != tc.want {
			t.Errorf("PermissionResource(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestActionIsMutating(t *testing.T) {
	mutating := []Action{ActionCreate, ActionUpdate, ActionDelete, ActionEdit, ActionManage}
	for _, a := range mutating {
		if !a.IsMutating() {
			t.Errorf("%q should be mutating", a)
		}
	}
	for _, a := range []Action{ActionRead, ActionView, ActionUnknown} {
		if a.IsMutating() {
			t.Errorf("%q should not be mutating", a)
		}
	}
}

// The allow-list is the only grant browsing-only actors ever receive, so it
// must never carry anything that changes state.
func TestAnonymousAllowListIsReadOnly(t *testing.T) {
	perms := AnonymousAllowList()
	if len(perms) == 0 {
		t.Fatalf("allow-list should not be empty")
	}
	for _, p := range perms {
		if PermissionAction(p).IsMutating() {
			t.Errorf("allow-list entry %q is mutating", p)
		}
	}
}

func TestRoleRank(t *testing.T) {
	order := []string{RoleCustomer, RoleStoreOwner, RoleAdmin, RoleSuperAdmin}
	for i := 1; i < len(order); i++ {
		if RoleRank(order[i]) <= RoleRank(order[i-1]) {
			t.Fatalf("expected %s to outrank %s", order[i], order[i-1])
		}
	}
	if RoleRank("editor") != 0 {
		t.Fatalf("unrecognised roles rank zero")
	}
	if !IsRole(RoleAdmin) || IsRole(PermManageUsers) {
		t.Fatalf("IsRole should separate role names from permission names")
	}
}
