// Package authmw provides HTTP middleware guarding the run endpoint
// with a static bearer token.
package authmw

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireBearer returns middleware that rejects requests whose
// Authorization header does not carry the expected bearer token.
// Comparison is constant-time. An empty expected token disables the
// check entirely (the operator opted out of auth).
func RequireBearer(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing or malformed authorization header", http.StatusUnauthorized)
				return
			}

			got := []byte(auth[len("Bearer "):])

			if subtle.ConstantTimeCompare(got, expected) != 1 {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
