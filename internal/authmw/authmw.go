// Package authmw guards the vessel API's write routes with a static bearer
// token.
package authmw

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// BearerToken returns middleware that rejects requests whose Authorization
// header does not carry the expected bearer token. An empty token disables
// the check so local deployments can run without credentials.
func BearerToken(token string) func(http.Handler) http.Handler {
	return guard(token, func(*http.Request) bool { return true })
}

// Mutating is BearerToken applied only to methods that change state. Reads
// (GET, HEAD, OPTIONS) always pass.
func Mutating(token string) func(http.Handler) http.Handler {
	return guard(token, func(r *http.Request) bool {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return false
		default:
			return true
		}
	})
}

func guard(token string, applies func(*http.Request) bool) func(http.Handler) http.Handler {
	if token == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !applies(r) {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := bearer(r)
			if !ok {
				unauthorized(w, "missing or malformed authorization header")
				return
			}
			// constant-time compare
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				unauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) ([]byte, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, bearerPrefix) {
		return nil, false
	}
	return []byte(auth[len(bearerPrefix):]), true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="vesselwatch"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
