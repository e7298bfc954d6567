package middleware

import (
	"crypto/subtle"
	"net/http"
)

const clientSecretHeader = "X-Client-Secret"

// ClientAuth returns middleware that requires the shared client secret in
// the X-Client-Secret header. The comparison is constant-time.
func ClientAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(clientSecretHeader)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
