package middleware

import (
	"context"
	"net/http"
)

// AuthHeader carries the shared secret (or a token derived from it).
const AuthHeader = "X-Auth-Key"

type Authorizer interface {
	Authorize(ctx context.Context, operation, credential string) error
}

// RequireSecret rejects requests whose X-Auth-Key header does not pass auth.
func RequireSecret(auth Authorizer, operation string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.Authorize(r.Context(), operation, r.Header.Get(AuthHeader)); err != nil {
				http.Error(w, "Invalid auth", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
