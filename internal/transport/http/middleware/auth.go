package middleware

import (
	"context"
	"net/http"
	"strings"

	"hrreview/internal/domain/auth"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// Auth attaches the caller from a valid bearer token. Requests without one
// continue anonymously and are rejected by RequirePermission or the domain.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.Actor())))
		})
	}
}

func WithUser(ctx context.Context, actor auth.Actor) context.Context {
	return context.WithValue(ctx, ctxKeyUser, actor)
}

func GetUser(ctx context.Context) (auth.Actor, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.Actor)
	return user, ok
}

// Actor returns the caller or the zero Actor, which every domain check
// rejects as unauthenticated.
func Actor(ctx context.Context) auth.Actor {
	user, _ := GetUser(ctx)
	return user
}
