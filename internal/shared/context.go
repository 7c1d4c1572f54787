package shared

import (
	"context"

	"github.com/crewdesk/crewdesk/internal/rbac"
)

type actorContextKey struct{}

// ContextWithActor stores the resolved actor in context for the remainder of
// the request.
func ContextWithActor(ctx context.Context, actor *rbac.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context. Returns nil when the
// request never passed the access guard.
func ActorFromContext(ctx context.Context) *rbac.Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*rbac.Actor)
	return actor
}
