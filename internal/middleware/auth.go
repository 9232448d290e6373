package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"helpdesk/internal/config"
	"helpdesk/internal/utils"
)

type ctxKey string

const (
	CtxUserID ctxKey = "uid"
	CtxRole   ctxKey = "role"
)

// WithAuth reads "Authorization: Bearer <jwt>" and stores the caller's id and
// role in the context. Requests without a usable token pass through
// unauthenticated; RequireAuth decides.
func WithAuth(log zerolog.Logger, cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))

			claims, err := utils.ParseJWT(cfg.Secret, tok)
			if err != nil {
				log.Debug().Err(err).Msg("rejected bearer token")
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), CtxUserID, claims.UserID)
			ctx = context.WithValue(ctx, CtxRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Caller returns the authenticated user id and role.
func Caller(ctx context.Context) (int64, string, bool) {
	uid, ok := utils.GetInt64(ctx, CtxUserID)
	if !ok || uid == 0 {
		return 0, "", false
	}
	role, _ := utils.GetString(ctx, CtxRole)
	return uid, role, true
}
