package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader carries the admin key on /admin requests.
const AdminKeyHeader = "X-Admin-Key"

// AdminPrefix is the path prefix guarded by AdminKey.
const AdminPrefix = "/admin/"

// AdminKey returns middleware that requires a key matching keyHash on every
// request under AdminPrefix. An empty keyHash disables the admin routes.
// PRE: keyHash is a bcrypt hash or empty
func AdminKey(keyHash string) func(http.Handler) http.Handler {
	hash := []byte(keyHash)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, AdminPrefix) {
				next.ServeHTTP(w, r)
				return
			}
			if len(hash) == 0 {
				http.Error(w, "admin access is not configured", http.StatusForbidden)
				return
			}
			key := r.Header.Get(AdminKeyHeader)
			if key == "" {
				http.Error(w, "admin key required", http.StatusUnauthorized)
				return
			}
			if err := bcrypt.CompareHashAndPassword(hash, []byte(key)); err != nil {
				slog.Warn("admin_key_rejected", "ip", ClientIP(r), "path", r.URL.Path)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
