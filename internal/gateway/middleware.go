package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/meridian-shop/meridian/internal/authz"
	"github.com/meridian-shop/meridian/internal/shared"
)

type coreContextKey struct{}

func contextWithCore(ctx context.Context, core *Core) context.Context {
	return context.WithValue(ctx, coreContextKey{}, core)
}

func coreFromContext(ctx context.Context) *Core {
	core, _ := ctx.Value(coreContextKey{}).(*Core)
	return core
}

// SessionMiddleware resolves the per-browser core and attaches the current
// actor to the request context for the guard and the handlers.
func SessionMiddleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			core := reg.Resolve(w, r)
			ctx := contextWithCore(r.Context(), core)
			ctx = shared.ContextWithActor(ctx, core.Machine.Actor())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Guard wires authorization checks into the HTTP routing layer. Decisions
// come from the engine's ordered rules; the guard only maps deny to 403.
type Guard struct {
	Engine *authz.Engine
	Logger *slog.Logger
}

func (g Guard) deny(w http.ResponseWriter, r *http.Request, kind string) {
	if g.Logger != nil {
		g.Logger.Warn("authorization denied",
			slog.String("kind", kind),
			slog.String("path", r.URL.Path))
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

// RequireRoute gates a handler chain on the route's requirement table entry.
func (g Guard) RequireRoute(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if !g.Engine.Can(actor, authz.RouteCheck{Route: route}) {
				g.deny(w, r, "route:"+route)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the current actor holds at least one of the
// permissions.
func (g Guard) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if !g.Engine.Can(actor, authz.PermissionCheck{Permissions: perms}) {
				g.deny(w, r, "permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAll ensures the current actor holds all of the permissions.
func (g Guard) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if !g.Engine.Can(actor, authz.PermissionCheck{Permissions: perms, All: true}) {
				g.deny(w, r, "permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
