package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drasante/modamart/internal/models"
)

func Test_Authenticate(t *testing.T) {
	t.Parallel()

	identity := newIdentity(models.RoleUser)
	auth := fakeAuth{
		identities: map[string]models.Identity{"good-token": identity},
		expired:    map[string]bool{"stale-token": true},
	}

	t.Run("valid token passes identity through", func(t *testing.T) {
		var saw models.Identity
		handler := Authenticate(auth, headerTokens{})(okHandler(&saw, nil))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, identity, saw)
	})

	t.Run("missing token refused", func(t *testing.T) {
		handler := Authenticate(auth, headerTokens{})(okHandler(nil, nil))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Authentication required")
	})

	t.Run("expired and invalid answer differently", func(t *testing.T) {
		handler := Authenticate(auth, headerTokens{})(okHandler(nil, nil))

		stale := httptest.NewRequest(http.MethodGet, "/", nil)
		stale.Header.Set("Authorization", "stale-token")
		staleRec := httptest.NewRecorder()
		handler.ServeHTTP(staleRec, stale)

		bogus := httptest.NewRequest(http.MethodGet, "/", nil)
		bogus.Header.Set("Authorization", "bogus-token")
		bogusRec := httptest.NewRecorder()
		handler.ServeHTTP(bogusRec, bogus)

		require.Equal(t, http.StatusUnauthorized, staleRec.Code)
		require.Equal(t, http.StatusUnauthorized, bogusRec.Code)
		assert.Contains(t, staleRec.Body.String(), "Token expired", "client must know a refresh could help")
		assert.Contains(t, bogusRec.Body.String(), "Invalid token")
	})
}

func Test_OptionalAuth(t *testing.T) {
	t.Parallel()

	identity := newIdentity(models.RoleUser)
	auth := fakeAuth{identities: map[string]models.Identity{"good-token": identity}}

	t.Run("valid token attaches identity", func(t *testing.T) {
		var saw models.Identity
		handler := OptionalAuth(auth, headerTokens{}, testLogger{})(okHandler(&saw, nil))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, identity, saw)
	})

	t.Run("no token goes through anonymously", func(t *testing.T) {
		var anonymous bool
		handler := OptionalAuth(auth, headerTokens{}, testLogger{})(okHandler(nil, &anonymous))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, anonymous)
	})

	t.Run("bad token does not block, request stays anonymous", func(t *testing.T) {
		var anonymous bool
		handler := OptionalAuth(auth, headerTokens{}, testLogger{})(okHandler(nil, &anonymous))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "bogus-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, anonymous)
	})

	t.Run("swallowed failure is logged at debug", func(t *testing.T) {
		log := &debugLog{}
		handler := OptionalAuth(auth, headerTokens{}, log)(okHandler(nil, nil))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "bogus-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, log.msgs, 1)
		assert.Contains(t, log.msgs[0], "bad credential")
	})
}

// debugLog records debug lines and drops everything else
type debugLog struct {
	testLogger
	msgs []string
}

func (d *debugLog) Debug(msg string, _ ...any) { d.msgs = append(d.msgs, msg) }
