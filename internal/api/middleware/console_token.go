package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/inlet-labs/inlet/internal/api"
)

// ConsoleToken guards console endpoints with a shared token carried in the
// X-Console-Token header. An empty configured token disables the check,
// matching a development setup with no console credential provisioned.
func ConsoleToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			supplied := r.Header.Get("X-Console-Token")
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
				api.Error(w, http.StatusUnauthorized, "unauthorized console access")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
