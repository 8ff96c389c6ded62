package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/transport"
)

// RequirePermissions lets the request through when the caller's role holds
// any of the given permissions.
func RequirePermissions(lg *slog.Logger, permissions ...string) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(lg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := internal.ActorFromContext(r.Context())

			if !actor.HasAnyPermission(permissions...) {
				base.Logger.Warn("access denied: role lacks required permissions",
					"role", actor.Role,
					"required_permissions", permissions,
					"role_permissions", actor.Role.Permissions())
				base.HandleServiceError(w, internal.ErrForbiddenRole)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
