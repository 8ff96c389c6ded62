package internal

import (
	"context"
	"time"

	"github.com/frahmantamala/rt-lending/internal/core/user"
)

type ctxKey string

const ContextActorKey ctxKey = "actor"

// ActorFromContext returns the actor set by the role middleware. Requests
// without one are treated as an anonymous borrower.
func ActorFromContext(ctx context.Context) user.Actor {
	if ctx == nil {
		return user.Actor{Role: user.RoleNasabah}
	}
	if actor, ok := ctx.Value(ContextActorKey).(user.Actor); ok {
		return actor
	}
	return user.Actor{Role: user.RoleNasabah}
}

func ContextWithActor(ctx context.Context, actor user.Actor) context.Context {
	return context.WithValue(ctx, ContextActorKey, actor)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
