package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/handlers/reqctx"
	"github.com/drasante/modamart/internal/models"
)

// Shared fakes for the middleware tests

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}

// fakeAuth resolves fixed tokens to fixed identities
type fakeAuth struct {
	identities map[string]models.Identity
	expired    map[string]bool
}

func (f fakeAuth) IdentityFromAccess(raw string) (models.Identity, error) {
	if f.expired[raw] {
		return models.Identity{}, apperrors.ErrTokenExpired
	}
	if id, ok := f.identities[raw]; ok {
		return id, nil
	}
	return models.Identity{}, apperrors.ErrTokenInvalid
}

// headerTokens reads the raw token straight from the Authorization header
type headerTokens struct{}

func (headerTokens) AccessFromRequest(r *http.Request) (string, error) {
	if raw := r.Header.Get("Authorization"); raw != "" {
		return raw, nil
	}
	return "", apperrors.ErrAuthenticationRequired
}

// okHandler records the identity it saw and answers 200
func okHandler(sawIdentity *models.Identity, sawAnonymous *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := reqctx.IdentityFrom(r.Context()); ok {
			if sawIdentity != nil {
				*sawIdentity = id
			}
		} else if sawAnonymous != nil {
			*sawAnonymous = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func newIdentity(role models.Role) models.Identity {
	return models.Identity{UserID: uuid.New(), Role: role}
}
