package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

func readAuth(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return strings.TrimSpace(k)
	}
	// browsers cannot set headers on a websocket handshake
	return strings.TrimSpace(r.URL.Query().Get("api_key"))
}

func hasKey(given string, set []string) bool {
	if given == "" {
		return false
	}
	for _, k := range set {
		if subtle.ConstantTimeCompare([]byte(k), []byte(given)) == 1 {
			return true
		}
	}
	return false
}

// RequireKey only permits requests that present one of keys.
// If no keys are configured, it allows all requests.
func RequireKey(keys []string) func(http.Handler) http.Handler {
	enabled := len(keys) > 0
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hasKey(readAuth(r), keys) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		})
	}
}
