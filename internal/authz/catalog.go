package authz

import "strings"

// Action is the verb half of a permission name.
type Action string

const (
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionView    Action = "view"
	ActionEdit    Action = "edit"
	ActionManage  Action = "manage"
	ActionUnknown Action = "unknown"
)

// Resource is the noun half of a permission name.
type Resource string

const (
	ResourceUsers         Resource = "users"
	ResourceRoles         Resource = "roles"
	ResourcePermissions   Resource = "permissions"
	ResourceProducts      Resource = "products"
	ResourceOrders        Resource = "orders"
	ResourceCategories    Resource = "categories"
	ResourceSubcategories Resource = "subcategories"
	ResourceStores        Resource = "stores"
	ResourceCarts         Resource = "carts"
	ResourcePromotions    Resource = "promotions"
	ResourceAnalytics     Resource = "analytics"
	ResourceDashboard     Resource = "dashboard"
	ResourceAuditLogs     Resource = "audit_logs"
	ResourcePackages      Resource = "packages"
	ResourceShipping      Resource = "shipping"
	ResourceSizes         Resource = "sizes"
	ResourceTaxes         Resource = "taxes"
	ResourceReturns       Resource = "returns"
	ResourceArticles      Resource = "articles"
	ResourceComments      Resource = "comments"
	ResourceFavorites     Resource = "favorites"
	ResourcePayments      Resource = "payments"
	ResourceOther         Resource = "other"
)

var actionPrefixes = []Action{
	ActionRead,
	ActionCreate,
	ActionUpdate,
	ActionDelete,
	ActionView,
	ActionEdit,
	ActionManage,
}

// resourceMatches is ordered so that the more specific name wins when one
// resource name contains another (subcategories vs categories).
var resourceMatches = []Resource{
	ResourceSubcategories,
	ResourceCategories,
	ResourceAuditLogs,
	ResourceUsers,
	ResourceRoles,
	ResourcePermissions,
	ResourceProducts,
	ResourceOrders,
	ResourceStores,
	ResourceCarts,
	ResourcePromotions,
	ResourceAnalytics,
	ResourceDashboard,
	ResourcePackages,
	ResourceShipping,
	ResourceSizes,
	ResourceTaxes,
	ResourceReturns,
	ResourceArticles,
	ResourceComments,
	ResourceFavorites,
	ResourcePayments,
}

// PermissionAction derives the action tag from a permission name's leading
// token. Names outside the fixed prefix set tag as ActionUnknown.
func PermissionAction(name string) Action {
	for _, a := range actionPrefixes {
		if strings.HasPrefix(name, string(a)+"_") {
			return a
		}
	}
	return ActionUnknown
}

// PermissionResource derives the resource tag by matching known resource
// substrings. Unmatched names tag as ResourceOther.
func PermissionResource(name string) Resource {
	for _, r := range resourceMatches {
		if strings.Contains(name, string(r)) {
			return r
		}
	}
	return ResourceOther
}

// IsMutating reports whether the action changes state.
func (a Action) IsMutating() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionEdit, ActionManage:
		return true
	}
	return false
}

// Permission constants for the capabilities referenced by routes, gates and
// the anonymous allow-list. Any `{action}_{resource}` name is a valid
// permission; these are just the well-known ones.
const (
	PermViewProducts      = "view_products"
	PermViewCategories    = "view_categories"
	PermViewSubcategories = "view_subcategories"
	PermViewStores        = "view_stores"
	PermViewArticles      = "view_articles"
	PermViewComments      = "view_comments"
	PermViewFavorites     = "view_favorites"
	PermViewOrders        = "view_orders"
	PermViewDashboard     = "view_dashboard"
	PermViewAnalytics     = "view_analytics"
	PermViewAuditLogs     = "view_audit_logs"

	PermManageUsers      = "manage_users"
	PermManageRoles      = "manage_roles"
	PermManageProducts   = "manage_products"
	PermManageOrders     = "manage_orders"
	PermManageStores     = "manage_stores"
	PermManagePromotions = "manage_promotions"
)

// anonymousAllowList is the fixed browse-only grant for anonymous and guest
// actors. Correctness invariant: it never contains a mutating permission.
var anonymousAllowList = map[string]struct{}{
	PermViewProducts:      {},
	PermViewCategories:    {},
	PermViewSubcategories: {},
	PermViewStores:        {},
	PermViewArticles:      {},
	PermViewComments:      {},
	PermViewFavorites:     {},
}

// AnonymousAllowList returns the browse-only permissions granted without any
// role.
func AnonymousAllowList() []string {
	out := make([]string, 0, len(anonymousAllowList))
	for p := range anonymousAllowList {
		out = append(out, p)
	}
	return out
}
