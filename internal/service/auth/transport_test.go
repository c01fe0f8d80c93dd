package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/models"
)

func testPair() models.TokenPair {
	return models.TokenPair{
		Access:  models.IssuedToken{Value: "access-value", ExpiresAt: time.Now().Add(15 * time.Minute)},
		Refresh: models.IssuedToken{Value: "refresh-value", ExpiresAt: time.Now().Add(24 * time.Hour)},
	}
}

func cookieByName(t *testing.T, cookies []*http.Cookie, name string) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func Test_TokenTransport(t *testing.T) {
	t.Parallel()

	t.Run("set pair writes both cookies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewTokenTransport(true).SetTokenPair(rec, testPair())

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 2)

		access := cookieByName(t, cookies, AccessTokenCookie)
		assert.Equal(t, "access-value", access.Value)
		assert.True(t, access.HttpOnly)
		assert.True(t, access.Secure)
		assert.Equal(t, http.SameSiteStrictMode, access.SameSite)

		refresh := cookieByName(t, cookies, RefreshTokenCookie)
		assert.Equal(t, "refresh-value", refresh.Value)
	})

	t.Run("development cookies relaxed for local http", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewTokenTransport(false).SetTokenPair(rec, testPair())

		access := cookieByName(t, rec.Result().Cookies(), AccessTokenCookie)
		assert.False(t, access.Secure)
		assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
		assert.True(t, access.HttpOnly, "HttpOnly holds in every environment")
	})

	t.Run("clear expires both cookies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewTokenTransport(true).ClearTokens(rec)

		for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
			c := cookieByName(t, rec.Result().Cookies(), name)
			assert.Empty(t, c.Value)
			assert.True(t, c.Expires.Before(time.Now()))
		}
	})

	t.Run("access from cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "from-cookie"})

		got, err := NewTokenTransport(false).AccessFromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "from-cookie", got)
	})

	t.Run("bearer header is the fallback", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer from-header")

		got, err := NewTokenTransport(false).AccessFromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "from-header", got)
	})

	t.Run("cookie beats header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "from-cookie"})
		r.Header.Set("Authorization", "Bearer from-header")

		got, err := NewTokenTransport(false).AccessFromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "from-cookie", got)
	})

	t.Run("no credentials at all", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		_, err := NewTokenTransport(false).AccessFromRequest(r)
		require.ErrorIs(t, err, apperrors.ErrAuthenticationRequired)
	})

	t.Run("malformed authorization header ignored", func(t *testing.T) {
		for _, header := range []string{"Basic abc", "Bearer", "Bearer   "} {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", header)

			_, err := NewTokenTransport(false).AccessFromRequest(r)
			require.ErrorIs(t, err, apperrors.ErrAuthenticationRequired, "header %q", header)
		}
	})

	t.Run("refresh comes from its cookie only", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "refresh-raw"})

		got, err := NewTokenTransport(false).RefreshFromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "refresh-raw", got)

		bare := httptest.NewRequest(http.MethodPost, "/", nil)
		_, err = NewTokenTransport(false).RefreshFromRequest(bare)
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenInvalid)
	})
}
