package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Credential present but unusable
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenWrongType = errors.New("token type does not match signing domain")

	// No credential at all
	ErrAuthenticationRequired = errors.New("authentication required")

	// Rotation race lost, token revoked or unknown to the ledger
	ErrRefreshTokenInvalid  = errors.New("refresh token is invalid")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")

	ErrVerificationTokenInvalid = errors.New("verification token is invalid or expired")
	ErrResetTokenInvalid        = errors.New("reset token is invalid or expired")

	ErrForbidden              = errors.New("access denied")
	ErrSessionNotFound        = errors.New("session not found")
	ErrRecommendationNotFound = errors.New("recommendation not found")

	ErrCSRFMissing = errors.New("csrf token missing")
	ErrCSRFInvalid = errors.New("csrf token invalid")

	ErrRateLimited = errors.New("rate limit exceeded")

	ErrCleanupInProgress = errors.New("cleanup already in progress")

	ErrWeakSecret = errors.New("secret is missing or too weak")
)
