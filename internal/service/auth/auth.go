package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/logger"
	"github.com/drasante/modamart/internal/models"
	"github.com/drasante/modamart/internal/repository"
)

const (
	DefaultVerificationTokenTTL = 24 * time.Hour
	DefaultResetTokenTTL        = time.Hour
)

type Config struct {
	// Secret keys to sign the two token domains
	AccessSecret  string
	RefreshSecret string

	// Token lifetimes, zero values use the codec defaults
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// One-time token lifetimes, zero values use the package defaults
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration

	// Hasher to use during registration and login, defaults to bcrypt
	Hasher PasswordHasher

	// Mailer for verification and reset emails, defaults to LogMailer
	Mailer Mailer

	Logger logger.Logger
}

// Auth service
type AuthService struct {
	// Codec to issue and verify signed tokens
	codec *TokenCodec

	// hasher to hash or compare user passwords
	hasher PasswordHasher

	mailer Mailer

	// Repositories for long term data
	storage repository.Storage

	verificationTTL time.Duration
	resetTTL        time.Duration

	logger logger.Logger

	// now is replaceable in tests
	now func() time.Time
}

func NewAuthService(cfg Config, storage repository.Storage) (*AuthService, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger must not be nil")
	}

	codec, err := NewTokenCodec(CodecConfig{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		return nil, err
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}
	mailer := cfg.Mailer
	if mailer == nil {
		mailer = LogMailer{Logger: cfg.Logger}
	}
	if cfg.VerificationTokenTTL == 0 {
		cfg.VerificationTokenTTL = DefaultVerificationTokenTTL
	}
	if cfg.ResetTokenTTL == 0 {
		cfg.ResetTokenTTL = DefaultResetTokenTTL
	}

	return &AuthService{
		codec:           codec,
		hasher:          hasher,
		mailer:          mailer,
		storage:         storage,
		verificationTTL: cfg.VerificationTokenTTL,
		resetTTL:        cfg.ResetTokenTTL,
		logger:          cfg.Logger,
		now:             time.Now,
	}, nil
}

// Codec exposes the token codec for middleware that verifies access tokens
func (s *AuthService) Codec() *TokenCodec {
	return s.codec
}

// randomToken returns 32 random bytes hex encoded, used for the one-time
// email verification and password reset tokens
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while generating random token. Err: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Signup creates an unverified user and sends the verification email.
// No tokens are issued: the account cannot log in until the email is
// confirmed
func (s *AuthService) Signup(ctx context.Context, email string, password string, fullName string) (models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	token, err := randomToken()
	if err != nil {
		return models.User{}, err
	}
	expires := s.now().Add(s.verificationTTL)

	user, err := s.storage.User().CreateUser(ctx, repository.CreateUserParams{
		Email:                    email,
		PasswordHash:             hash,
		FullName:                 fullName,
		Role:                     models.RoleUser,
		VerificationToken:        &token,
		VerificationTokenExpires: &expires,
	})
	if err != nil {
		return models.User{}, err
	}

	if err := s.mailer.SendVerificationEmail(ctx, user.Email, user.FullName, token); err != nil {
		// The account exists either way, the token can be re-sent later
		s.logger.Warn("verification email not sent",
			"email", logger.MaskEmail(user.Email),
			"error", err.Error(),
		)
	}

	return user, nil
}

// VerifyEmail confirms the account behind a verification token
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (models.User, error) {
	user, err := s.storage.User().GetUserByVerificationToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return models.User{}, apperrors.ErrVerificationTokenInvalid
		}
		return models.User{}, err
	}

	if err := s.storage.User().MarkEmailVerified(ctx, user.ID); err != nil {
		return models.User{}, err
	}
	user.EmailVerified = true

	s.logger.Info("email verified", "user_id", logger.MaskID(user.ID.String()))
	return user, nil
}

// Login checks credentials and issues a fresh token pair. Every refresh
// token the user held before is revoked, a login starts a single session.
// Unknown email and wrong password are indistinguishable to the caller
func (s *AuthService) Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error) {
	user, err := s.storage.User().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Burn comparable time so a missing account is not
			// detectable through response latency
			_ = s.hasher.Compare("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy", password)
			return models.User{}, models.TokenPair{}, apperrors.ErrInvalidCredentials
		}
		return models.User{}, models.TokenPair{}, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return models.User{}, models.TokenPair{}, apperrors.ErrInvalidCredentials
	}

	if !user.EmailVerified && !user.Role.IsAdmin() {
		return models.User{}, models.TokenPair{}, apperrors.ErrEmailNotVerified
	}

	loginAt := s.now()
	if err := s.storage.User().TouchLastLogin(ctx, user.ID, loginAt); err != nil {
		return models.User{}, models.TokenPair{}, err
	}
	user.LastLoginAt = &loginAt

	if _, err := s.storage.Refresh().DeleteAllForUser(ctx, user.ID); err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	s.logger.Info("user logged in",
		"user_id", logger.MaskID(user.ID.String()),
		"email", logger.MaskEmail(user.Email),
	)
	return user, pair, nil
}

// Refresh rotates a refresh token: verify, look up in the ledger, delete,
// then issue a new pair. The delete is the race arbiter: when two requests
// carry the same token only the one that actually removed the row wins,
// the other gets apperrors.ErrRefreshTokenInvalid
func (s *AuthService) Refresh(ctx context.Context, raw string) (models.User, models.TokenPair, error) {
	claims, err := s.codec.Verify(raw, TokenTypeRefresh)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	stored, err := s.storage.Refresh().GetValid(ctx, raw, s.now())
	if err != nil {
		if errors.Is(err, apperrors.ErrRefreshTokenNotFound) {
			return models.User{}, models.TokenPair{}, apperrors.ErrRefreshTokenInvalid
		}
		return models.User{}, models.TokenPair{}, err
	}

	if stored.UserID != claims.UserID {
		s.logger.Warn("refresh token subject mismatch",
			"ledger_user", logger.MaskID(stored.UserID.String()),
			"claims_user", logger.MaskID(claims.UserID.String()),
		)
		return models.User{}, models.TokenPair{}, apperrors.ErrRefreshTokenInvalid
	}

	// Re-read the user so role changes travel into the new tokens
	user, err := s.storage.User().GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return models.User{}, models.TokenPair{}, apperrors.ErrRefreshTokenInvalid
		}
		return models.User{}, models.TokenPair{}, err
	}

	deleted, err := s.storage.Refresh().Delete(ctx, raw)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}
	if !deleted {
		return models.User{}, models.TokenPair{}, apperrors.ErrRefreshTokenInvalid
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	return user, pair, nil
}

// Logout revokes the presented refresh token and, belt and braces, every
// other token of the user. Safe to call with an empty token
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	if refreshToken != "" {
		if _, err := s.storage.Refresh().Delete(ctx, refreshToken); err != nil {
			return err
		}
	}

	if _, err := s.storage.Refresh().DeleteAllForUser(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("user logged out", "user_id", logger.MaskID(userID.String()))
	return nil
}

// ForgotPassword stores a reset token and mails it. The result is the same
// whether the account exists or not, enumeration through this endpoint is
// not possible
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.storage.User().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			s.logger.Info("password reset requested for unknown email",
				"email", logger.MaskEmail(email),
			)
			return nil
		}
		return err
	}

	token, err := randomToken()
	if err != nil {
		return err
	}

	if err := s.storage.User().SetResetToken(ctx, user.ID, token, s.now().Add(s.resetTTL)); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, user.FullName, token); err != nil {
		s.logger.Warn("password reset email not sent",
			"email", logger.MaskEmail(user.Email),
			"error", err.Error(),
		)
	}

	return nil
}

// ResetPassword replaces the password behind a valid reset token and
// revokes every refresh token of the user
func (s *AuthService) ResetPassword(ctx context.Context, token string, newPassword string) error {
	user, err := s.storage.User().GetUserByResetToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return apperrors.ErrResetTokenInvalid
		}
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password, error=%w", err)
	}

	if err := s.storage.User().SetPassword(ctx, user.ID, hash); err != nil {
		return err
	}

	if _, err := s.storage.Refresh().DeleteAllForUser(ctx, user.ID); err != nil {
		return err
	}

	s.logger.Info("password reset", "user_id", logger.MaskID(user.ID.String()))
	return nil
}

// GetUser loads the user behind an identity
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}

// IdentityFromAccess verifies a raw access token and returns the identity
// it carries. Expired and invalid tokens stay distinguishable
func (s *AuthService) IdentityFromAccess(raw string) (models.Identity, error) {
	claims, err := s.codec.Verify(raw, TokenTypeAccess)
	if err != nil {
		return models.Identity{}, err
	}
	return models.Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

func (s *AuthService) issuePair(ctx context.Context, user models.User) (models.TokenPair, error) {
	pair, err := s.codec.IssuePair(user.ID, user.Role)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	err = s.storage.Refresh().Save(ctx, models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     pair.Refresh.Value,
		CreatedAt: s.now().Truncate(time.Second),
		ExpiresAt: pair.Refresh.ExpiresAt,
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return pair, nil
}
