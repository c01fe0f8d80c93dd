package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/drasante/modamart/internal/handlers/render"
)

const adminKeyHeader = "X-API-Key"

// AdminKey protects operational endpoints with a static key. The compare
// is constant time, header presence does not leak through timing
func AdminKey(key string, log logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(adminKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				log.Warn("admin endpoint refused",
					"path", r.URL.Path,
					"key_presented", presented != "",
				)
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
