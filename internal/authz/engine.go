package authz

// Engine evaluates allow/deny decisions over an Actor. It is pure: no
// storage, no network, deterministic for a given actor and catalog, and it
// never returns an error. Unknown role or permission names simply evaluate
// to "not held".
//
// Base decisions apply an ordered rule list, first match wins:
//
//  1. anonymous/guest: permissions via the fixed allow-list, roles never
//  2. super_admin: everything allowed
//  3. admin: everything allowed except a role check naming super_admin
//  4. literal role/permission set membership
type Engine struct {
	routes map[string]Requirement
}

// NewEngine builds an engine over the default route gating table.
func NewEngine() *Engine {
	return NewEngineWithRoutes(DefaultRouteRequirements())
}

// NewEngineWithRoutes builds an engine over a caller-supplied route table.
func NewEngineWithRoutes(routes map[string]Requirement) *Engine {
	if routes == nil {
		routes = map[string]Requirement{}
	}
	return &Engine{routes: routes}
}

// RouteRequirement looks up the gate for a route. The second return is false
// when the route is unrestricted.
func (e *Engine) RouteRequirement(route string) (Requirement, bool) {
	req, ok := e.routes[route]
	return req, ok
}

// HasRole is the base role decision.
func (e *Engine) HasRole(a Actor, role string) bool {
	if a.IsBrowsingOnly() {
		return false
	}
	if a.HasRoleLiteral(RoleSuperAdmin) {
		return true
	}
	if a.HasRoleLiteral(RoleAdmin) {
		// Admin passes every role check except an explicit super_admin gate.
		return role != RoleSuperAdmin
	}
	return a.HasRoleLiteral(role)
}

// HasPermission is the base permission decision.
func (e *Engine) HasPermission(a Actor, perm string) bool {
	if a.IsBrowsingOnly() {
		_, ok := anonymousAllowList[perm]
		return ok
	}
	if a.HasRoleLiteral(RoleSuperAdmin) || a.HasRoleLiteral(RoleAdmin) {
		return true
	}
	return a.HasPermissionLiteral(perm)
}

// HasAnyRole reports whether any of the named roles is held. An empty list
// is vacuously satisfied.
func (e *Engine) HasAnyRole(a Actor, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if e.HasRole(a, r) {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether every named role is held.
func (e *Engine) HasAllRoles(a Actor, roles []string) bool {
	for _, r := range roles {
		if !e.HasRole(a, r) {
			return false
		}
	}
	return true
}

// HasAnyPermission reports whether any of the named permissions is held. An
// empty list is vacuously satisfied.
func (e *Engine) HasAnyPermission(a Actor, perms []string) bool {
	if len(perms) == 0 {
		return true
	}
	for _, p := range perms {
		if e.HasPermission(a, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every named permission is held.
func (e *Engine) HasAllPermissions(a Actor, perms []string) bool {
	for _, p := range perms {
		if !e.HasPermission(a, p) {
			return false
		}
	}
	return true
}

// CanAccessRoute evaluates the route's requirement. Unrestricted routes are
// always reachable. A requirement splits into role tokens and permission
// tokens; both branches must pass when both kinds are present. For anonymous
// and guest actors only the permission branch applies, so public routes stay
// reachable by permission alone; a requirement with no permission tokens
// therefore denies them.
func (e *Engine) CanAccessRoute(a Actor, route string) bool {
	req, ok := e.routes[route]
	if !ok {
		return true
	}
	roles := req.roleTokens()
	perms := req.permissionTokens()
	if a.IsBrowsingOnly() {
		if len(perms) == 0 {
			return false
		}
		return e.HasAnyPermission(a, perms)
	}
	return e.HasAnyRole(a, roles) && e.HasAnyPermission(a, perms)
}

// CanManage reports whether the actor may mutate the resource: any
// create/update/delete/edit/manage permission for it, derived by the naming
// convention rather than a per-resource table.
func (e *Engine) CanManage(a Actor, resource Resource) bool {
	candidates := []string{
		string(ActionCreate) + "_" + string(resource),
		string(ActionUpdate) + "_" + string(resource),
		string(ActionDelete) + "_" + string(resource),
		string(ActionEdit) + "_" + string(resource),
		string(ActionManage) + "_" + string(resource),
	}
	// Nonconventional grants still count when they tag to the resource with
	// a mutating action.
	for _, p := range a.Permissions {
		if PermissionResource(p) == resource && PermissionAction(p).IsMutating() {
			candidates = append(candidates, p)
		}
	}
	return e.HasAnyPermission(a, candidates)
}

// CanView reports whether the actor holds the resource's canonical view or
// read permission.
func (e *Engine) CanView(a Actor, resource Resource) bool {
	return e.HasAnyPermission(a, []string{
		string(ActionView) + "_" + string(resource),
		string(ActionRead) + "_" + string(resource),
	})
}

// Check is the single gating entry point's argument: a role, permission or
// route check.
type Check interface {
	isCheck()
}

// RoleCheck asks for one or all of the named roles.
type RoleCheck struct {
	Roles []string
	All   bool
}

// PermissionCheck asks for one or all of the named permissions.
type PermissionCheck struct {
	Permissions []string
	All         bool
}

// RouteCheck asks whether a route is reachable.
type RouteCheck struct {
	Route string
}

func (RoleCheck) isCheck()       {}
func (PermissionCheck) isCheck() {}
func (RouteCheck) isCheck()      {}

// Can dispatches a check to the matching decision. Unknown check types deny.
func (e *Engine) Can(a Actor, c Check) bool {
	switch c := c.(type) {
	case RoleCheck:
		if c.All {
			return e.HasAllRoles(a, c.Roles)
		}
		return e.HasAnyRole(a, c.Roles)
	case PermissionCheck:
		if c.All {
			return e.HasAllPermissions(a, c.Permissions)
		}
		return e.HasAnyPermission(a, c.Permissions)
	case RouteCheck:
		return e.CanAccessRoute(a, c.Route)
	default:
		return false
	}
}
