package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

const (
	AdminTokenHeader   = "X-Admin-Token"
	AdminSessionCookie = "admin_session"
)

// AdminAuth is the shared-secret session check guarding the back office.
// An empty secret locks every admin route.
func AdminAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(AdminTokenHeader)
			if token == "" {
				if c, err := r.Cookie(AdminSessionCookie); err == nil {
					token = c.Value
				}
			}

			if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{
					"error":   "UNAUTHORIZED",
					"message": "admin session required",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
