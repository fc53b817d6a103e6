package middleware

import (
	"net/http"
	"slices"

	"github.com/papelisco/storefront/api/responses"
	"github.com/papelisco/storefront/pkg/enums"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
	"github.com/papelisco/storefront/pkg/logger"
)

// RequireRole admits callers whose role is one of allowed. It must run after Auth.
func RequireRole(allowed enums.UserRole, logg *logger.Logger, more ...enums.UserRole) func(http.Handler) http.Handler {
	roles := append([]enums.UserRole{allowed}, more...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := enums.UserRole(RoleFromContext(r.Context()))
			if !slices.Contains(roles, role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeForbidden, "requires role %s", allowed))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
