package rbac

import (
	"log/slog"
	"net/http"

	"github.com/atlas-iam/atlas-iam/internal/platform/httpx"
	"github.com/atlas-iam/atlas-iam/internal/shared"
)

// Middleware wires authorization checks into HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require ensures the current user holds every listed permission before the
// request reaches the handler. With no permissions listed the route is
// unguarded. Denials carry no detail about which permission was missing.
func (m Middleware) Require(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			identity := shared.IdentityFromContext(r.Context())
			if identity == nil {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			allowed, err := m.Service.HasPermissionTo(r.Context(), identity.UserID, perms)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac require", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !allowed {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
