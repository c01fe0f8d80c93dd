package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/drasante/modamart/internal/models"
)

type CreateUserParams struct {
	Email        string
	PasswordHash string
	FullName     string
	Role         models.Role

	VerificationToken        *string
	VerificationTokenExpires *time.Time
}

// User repository interface
type UserRepo interface {
	// Create user
	// If a user with the email exists already (case insensitive) has to
	// return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id or email (email matched case insensitively)
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Lookup by one-time tokens. Expiry is filtered in the query itself:
	// a stale token behaves exactly like an unknown one
	GetUserByVerificationToken(ctx context.Context, token string, now time.Time) (models.User, error)
	GetUserByResetToken(ctx context.Context, token string, now time.Time) (models.User, error)

	// Mark the email verified and clear the verification token columns
	MarkEmailVerified(ctx context.Context, userID uuid.UUID) error

	// Store a password reset token with its expiry
	SetResetToken(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error

	// Replace the password hash and clear the reset token columns
	SetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error

	// Record a successful login
	TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error

	// Cleanup sweeps: null out token columns past expiry.
	// Both return the number of rows affected and are safe to repeat
	ExpireVerificationTokens(ctx context.Context, now time.Time) (int64, error)
	ExpireResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// RefreshToken ledger interface
type RefreshTokenRepo interface {
	// Persist an issued refresh token
	Save(ctx context.Context, token models.RefreshToken) error

	// Return the token only if it exists and is not expired at 'now'.
	// Expired or unknown tokens return apperrors.ErrRefreshTokenNotFound
	GetValid(ctx context.Context, tokenString string, now time.Time) (models.RefreshToken, error)

	// Delete one token by value. The returned bool reports whether a row
	// was actually removed: the rotation protocol uses it as the race
	// arbiter between two concurrent refreshes
	Delete(ctx context.Context, tokenString string) (bool, error)

	// Revoke every token of a subject (login and logout protocols)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// Cleanup sweep: drop rows past expiry, returns rows affected
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Session repository interface. Sessions and recommendations are owned by
// the CRUD layer; the auth core consumes them for ownership checks only
type SessionRepo interface {
	// Create a session, anonymous when userID is nil
	CreateSession(ctx context.Context, userID *uuid.UUID) (models.Session, error)

	// If not found must return apperrors.ErrSessionNotFound
	GetSession(ctx context.Context, id uuid.UUID) (models.Session, error)

	CreateRecommendation(ctx context.Context, sessionID uuid.UUID) (models.Recommendation, error)

	// If not found must return apperrors.ErrRecommendationNotFound
	GetRecommendation(ctx context.Context, id uuid.UUID) (models.Recommendation, error)
}

// Storage aggregates all repositories over one connection or transaction
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Session() SessionRepo

	// Run fn within a database transaction
	InTx(ctx context.Context, fn func(s Storage) error) error
}
