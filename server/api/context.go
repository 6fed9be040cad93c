package api

import (
	"context"

	"github.com/GoCodeAlone/docket/policy"
)

type contextKey int

const ctxKeyActor contextKey = 0

// WithActor returns a context carrying the resolved request actor.
func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

// ActorFrom returns the actor stored by WithActor.
func ActorFrom(ctx context.Context) (policy.Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(policy.Actor)
	return a, ok
}
