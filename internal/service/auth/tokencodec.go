package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/models"
)

// TokenType discriminates the two signing domains. The value is embedded in
// the "typ" claim so an otherwise valid token can never cross domains.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims carried by every issued token
type Claims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID   `json:"uid"`
	Role      models.Role `json:"role"`
	TokenType TokenType   `json:"typ"`
}

type CodecConfig struct {
	AccessSecret  string
	RefreshSecret string

	// Zero values fall back to DefaultAccessTTL / DefaultRefreshTTL
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenCodec issues and verifies signed tokens. It is stateless: validity is
// decided by signature, expiry and the "typ" claim alone, revocation of
// refresh tokens lives in the ledger, not here.
type TokenCodec struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	signingAlg jwt.SigningMethod

	// now is replaceable in tests
	now func() time.Time
}

func NewTokenCodec(cfg CodecConfig) (*TokenCodec, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token codec: both signing secrets are required")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}

	return &TokenCodec{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		signingAlg: jwt.SigningMethodHS256,
		now:        time.Now,
	}, nil
}

func (c *TokenCodec) key(t TokenType) ([]byte, error) {
	switch t {
	case TokenTypeAccess:
		return c.accessKey, nil
	case TokenTypeRefresh:
		return c.refreshKey, nil
	default:
		return nil, fmt.Errorf("unknown token type %q", t)
	}
}

// TTL reports the lifetime tokens of the given type are issued with
func (c *TokenCodec) TTL(t TokenType) time.Duration {
	if t == TokenTypeRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Issue signs a new token of the given type for the user
func (c *TokenCodec) Issue(userID uuid.UUID, role models.Role, t TokenType) (models.IssuedToken, error) {
	key, err := c.key(t)
	if err != nil {
		return models.IssuedToken{}, err
	}

	now := c.now().Truncate(time.Second)
	expiresAt := now.Add(c.TTL(t))

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    userID,
		Role:      role,
		TokenType: t,
	}

	signed, err := jwt.NewWithClaims(c.signingAlg, claims).SignedString(key)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("sign %s token: %w", t, err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Verify parses raw against the signing domain of the expected type.
// Errors are distinct: a bad signature or garbage input yields ErrTokenInvalid,
// a good but stale token yields ErrTokenExpired, and a token from the other
// domain that happens to verify yields ErrTokenWrongType.
func (c *TokenCodec) Verify(raw string, expected TokenType) (Claims, error) {
	key, err := c.key(expected)
	if err != nil {
		return Claims{}, err
	}

	var claims Claims
	_, err = jwt.ParseWithClaims(raw, &claims, func(_ *jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{c.signingAlg.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrTokenExpired, err)
		}
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
	}

	if claims.TokenType != expected {
		return Claims{}, fmt.Errorf("%w: got %q, want %q", apperrors.ErrTokenWrongType, claims.TokenType, expected)
	}

	return claims, nil
}

// IssuePair signs a matched access and refresh token for the user
func (c *TokenCodec) IssuePair(userID uuid.UUID, role models.Role) (models.TokenPair, error) {
	access, err := c.Issue(userID, role, TokenTypeAccess)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := c.Issue(userID, role, TokenTypeRefresh)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{Access: access, Refresh: refresh}, nil
}
