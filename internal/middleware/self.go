package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"helpdesk/internal/models"
	"helpdesk/internal/utils"
)

// RequireSelfOrRoles allows if {id} == ctx user id OR user has any of the given roles.
func RequireSelfOrRoles(roles ...models.Role) func(http.Handler) http.Handler {
	roleSet := map[string]struct{}{}
	for _, r := range roles {
		roleSet[string(r)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, role, _ := Caller(r.Context())
			if _, ok := roleSet[role]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if id, ok := utils.PathID(chi.URLParam(r, "id")); ok && uid != 0 && id == uid {
				next.ServeHTTP(w, r)
				return
			}
			utils.Error(w, http.StatusForbidden, "forbidden")
		})
	}
}
