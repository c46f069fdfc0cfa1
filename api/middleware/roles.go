package middleware

import (
	"net/http"

	"github.com/ferremas/backoffice/api/responses"
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
)

// RequireRoles admits only the listed roles and must run after Auth. A request with no
// identity is a 401; a known user with another role is a 403.
func RequireRoles(logg *logger.Logger, roles ...enums.Role) func(http.Handler) http.Handler {
	allowed := make(map[enums.Role]struct{}, len(roles))
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
		names = append(names, role.String())
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if _, ok := allowed[role]; !ok {
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "required_roles", names), "role.denied")
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role").
					WithDetails(map[string]any{"role": role.String()}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
