// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services read them; keeping
// the package free of net/http lets services avoid transport imports.
//
// Usage in services (read values):
//
//	actor, ok := requestcontext.Actor(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithActor(ctx, requestcontext.ActorInfo{Email: "maker@bank.test"})
package requestcontext

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActorInfo identifies the authenticated caller. Role is the raw role name
// from the caller's group ("admin", "manager 2", "normal user 1", ...).
type ActorInfo struct {
	ID    uuid.UUID
	Email string
	Role  string
}

type (
	actorKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// WithActor injects the resolved caller identity into the context.
func WithActor(ctx context.Context, actor ActorInfo) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Actor retrieves the caller identity. ok is false for anonymous requests
// (the allow-listed public read endpoints).
func Actor(ctx context.Context) (ActorInfo, bool) {
	actor, ok := ctx.Value(actorKey{}).(ActorInfo)
	return actor, ok
}

// WithRequestID injects a correlation id into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID retrieves the correlation id, or "" if unset.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithTime pins the request clock. Tests use it to make time-window
// projections deterministic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the pinned request time, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
