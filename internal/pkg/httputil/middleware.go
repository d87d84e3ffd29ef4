package httputil

import (
	"crypto/subtle"
	"net/http"

	"github.com/cds-snc/list-manager/internal/pkg/metrics"
)

// AuthMiddleware guards mutating endpoints with a static bearer token.
// The Authorization header must equal the configured token; subscription
// confirm/unsubscribe routes stay outside this middleware so that links in
// sent messages keep working without credentials.
func AuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			supplied := r.Header.Get("Authorization")
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
				metrics.AuthFailures.Inc()
				Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
