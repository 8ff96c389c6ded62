package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/core/user"
	"github.com/frahmantamala/rt-lending/internal/transport"
	"github.com/frahmantamala/rt-lending/pkg/logger"
)

const (
	HeaderRole     = "X-Role"
	HeaderUserName = "X-User-Name"
)

// ActorContext reads the caller's role and name from request headers.
// This is a role switch, not authentication: a missing role means a
// borrower, an unrecognised one is refused.
func ActorContext(lg *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(lg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := user.Actor{
				Role: user.RoleNasabah,
				Name: strings.TrimSpace(r.Header.Get(HeaderUserName)),
			}

			if raw := r.Header.Get(HeaderRole); strings.TrimSpace(raw) != "" {
				role, err := user.ParseRole(raw)
				if err != nil {
					base.Logger.Warn("request with unknown role", "role", raw, "path", r.URL.Path)
					base.HandleServiceError(w, internal.ErrUnknownRole.WithCause(err))
					return
				}
				actor.Role = role
			}

			ctx := internal.ContextWithActor(r.Context(), actor)
			ctx = logger.With(ctx, "role", string(actor.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
