package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/models"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	bearerPrefix = "Bearer "
)

// TokenTransport reads and writes the token cookies. Cookies are HttpOnly
// always, Secure and SameSite=Strict only in production so local http
// development keeps working.
type TokenTransport struct {
	production bool
}

func NewTokenTransport(production bool) *TokenTransport {
	return &TokenTransport{production: production}
}

func (t *TokenTransport) sameSite() http.SameSite {
	if t.production {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

func (t *TokenTransport) cookie(name string, value string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   t.production,
		SameSite: t.sameSite(),
	}
}

// SetTokenPair writes both token cookies on the response
func (t *TokenTransport) SetTokenPair(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, t.cookie(AccessTokenCookie, pair.Access.Value, pair.Access.ExpiresAt))
	http.SetCookie(w, t.cookie(RefreshTokenCookie, pair.Refresh.Value, pair.Refresh.ExpiresAt))
}

// ClearTokens expires both token cookies
func (t *TokenTransport) ClearTokens(w http.ResponseWriter) {
	expired := time.Unix(0, 0)
	http.SetCookie(w, t.cookie(AccessTokenCookie, "", expired))
	http.SetCookie(w, t.cookie(RefreshTokenCookie, "", expired))
}

// AccessFromRequest extracts the raw access token. The cookie wins, the
// Authorization bearer header is the fallback for non-browser clients
func (t *TokenTransport) AccessFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		if raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)); raw != "" {
			return raw, nil
		}
	}

	return "", apperrors.ErrAuthenticationRequired
}

// RefreshFromRequest extracts the raw refresh token from its cookie
func (t *TokenTransport) RefreshFromRequest(r *http.Request) (string, error) {
	c, err := r.Cookie(RefreshTokenCookie)
	if err != nil || c.Value == "" {
		return "", fmt.Errorf("%w: refresh cookie missing", apperrors.ErrRefreshTokenInvalid)
	}
	return c.Value, nil
}
