package middleware

import (
	"errors"
	"net/http"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/handlers/render"
	"github.com/drasante/modamart/internal/handlers/reqctx"
	"github.com/drasante/modamart/internal/models"
)

// authenticator turns a raw access token into an identity
type authenticator interface {
	IdentityFromAccess(raw string) (models.Identity, error)
}

// tokenSource extracts the raw access token from a request
type tokenSource interface {
	AccessFromRequest(r *http.Request) (string, error)
}

// Authenticate rejects requests without a valid access token. Expired and
// invalid tokens answer differently so clients know when to refresh
func Authenticate(auth authenticator, tokens tokenSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := tokens.AccessFromRequest(r)
			if err != nil {
				render.ServiceError(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			identity, err := auth.IdentityFromAccess(raw)
			if err != nil {
				switch {
				case errors.Is(err, apperrors.ErrTokenExpired):
					render.ServiceError(w, "Token expired", http.StatusUnauthorized)
				default:
					render.ServiceError(w, "Invalid token", http.StatusUnauthorized)
				}
				return
			}

			ctx := reqctx.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches an identity when a valid token is present and lets
// the request through anonymously otherwise. A token that is present but
// bad is treated like no token at all, the resource check downstream
// decides what anonymous requests may see. Skips are logged at debug so a
// misbehaving client can still be diagnosed
func OptionalAuth(auth authenticator, tokens tokenSource, log logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := tokens.AccessFromRequest(r)
			if err != nil {
				log.Debug("optional auth skipped, no credential", "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			identity, err := auth.IdentityFromAccess(raw)
			if err != nil {
				log.Debug("optional auth skipped, bad credential",
					"error", err.Error(),
					"path", r.URL.Path,
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := reqctx.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
