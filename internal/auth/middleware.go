package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type ctxKey string

const (
	ctxUserID  ctxKey = "uid"
	ctxIsAdmin ctxKey = "is_admin"
)

// Middleware authenticates requests with an Authorization: Bearer access
// token and puts the user identity on the request context.
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				unauthorized(w)
				return
			}

			claims, err := svc.VerifyAccess(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				log.Ctx(r.Context()).Warn().Err(err).Msg("jwt validation failed")
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
			ctx = context.WithValue(ctx, ctxIsAdmin, claims.IsAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"Missing or invalid access token"}`))
}

// UserID extracts the authenticated user id from the request context.
// Returns 0 when unauthenticated (cannot happen behind Middleware).
func UserID(ctx context.Context) int64 {
	if v, ok := ctx.Value(ctxUserID).(int64); ok {
		return v
	}
	return 0
}

// IsAdmin reports whether the authenticated user carries the admin claim.
func IsAdmin(ctx context.Context) bool {
	if v, ok := ctx.Value(ctxIsAdmin).(bool); ok {
		return v
	}
	return false
}

// WithUser is a test helper that injects an identity into a context the way
// Middleware would.
func WithUser(ctx context.Context, userID int64, isAdmin bool) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxIsAdmin, isAdmin)
}
