package shared

import (
	"context"

	"github.com/meridian-shop/meridian/internal/authz"
)

type actorContextKey struct{}

// ContextWithActor stores the current actor in context.
func ContextWithActor(ctx context.Context, actor authz.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the current actor from context. Requests that
// never went through the session middleware resolve to a zero anonymous
// actor.
func ActorFromContext(ctx context.Context) authz.Actor {
	actor, ok := ctx.Value(actorContextKey{}).(authz.Actor)
	if !ok {
		return authz.Anonymous(authz.StatusAnonymous)
	}
	return actor
}
