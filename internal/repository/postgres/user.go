package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/models"
	"github.com/drasante/modamart/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, email, password_hash, full_name, role,
       email_verified, verification_token, verification_token_expires,
       reset_password_token, reset_password_expires,
       last_login_at, created_at, updated_at`

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role,
		&u.EmailVerified, &u.VerificationToken, &u.VerificationTokenExpires,
		&u.ResetPasswordToken, &u.ResetPasswordExpires,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, email, password_hash, full_name, role, verification_token, verification_token_expires)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	role := arg.Role
	if role == "" {
		role = models.RoleUser
	}

	rows, _ := r.DB.Query(ctx, createUser,
		uuid.New(), arg.Email, arg.PasswordHash, arg.FullName, role,
		arg.VerificationToken, arg.VerificationTokenExpires,
	)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT ` + userColumns + `
FROM users
WHERE LOWER(email) = LOWER($1)
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

const getUserByVerificationToken = `-- name: GetUserByVerificationToken
SELECT ` + userColumns + `
FROM users
WHERE verification_token = $1
  AND verification_token_expires > $2
`

func (r *UserRepo) GetUserByVerificationToken(ctx context.Context, token string, now time.Time) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByVerificationToken, token, now)
	return collectUser(rows)
}

const getUserByResetToken = `-- name: GetUserByResetToken
SELECT ` + userColumns + `
FROM users
WHERE reset_password_token = $1
  AND reset_password_expires > $2
`

func (r *UserRepo) GetUserByResetToken(ctx context.Context, token string, now time.Time) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByResetToken, token, now)
	return collectUser(rows)
}

const markEmailVerified = `-- name: MarkEmailVerified
UPDATE users
SET email_verified = TRUE,
    verification_token = NULL,
    verification_token_expires = NULL,
    updated_at = now()
WHERE id = $1
`

func (r *UserRepo) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	return r.execOne(ctx, markEmailVerified, userID)
}

const setResetToken = `-- name: SetResetToken
UPDATE users
SET reset_password_token = $2,
    reset_password_expires = $3,
    updated_at = now()
WHERE id = $1
`

func (r *UserRepo) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expires time.Time) error {
	return r.execOne(ctx, setResetToken, userID, token, expires)
}

const setPassword = `-- name: SetPassword
UPDATE users
SET password_hash = $2,
    reset_password_token = NULL,
    reset_password_expires = NULL,
    updated_at = now()
WHERE id = $1
`

func (r *UserRepo) SetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	return r.execOne(ctx, setPassword, userID, passwordHash)
}

const touchLastLogin = `-- name: TouchLastLogin
UPDATE users
SET last_login_at = $2,
    updated_at = now()
WHERE id = $1
`

func (r *UserRepo) TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.execOne(ctx, touchLastLogin, userID, at)
}

const expireVerificationTokens = `-- name: ExpireVerificationTokens
UPDATE users
SET verification_token = NULL,
    verification_token_expires = NULL
WHERE verification_token IS NOT NULL
  AND verification_token_expires < $1
`

func (r *UserRepo) ExpireVerificationTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, expireVerificationTokens, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

const expireResetTokens = `-- name: ExpireResetTokens
UPDATE users
SET reset_password_token = NULL,
    reset_password_expires = NULL
WHERE reset_password_token IS NOT NULL
  AND reset_password_expires < $1
`

func (r *UserRepo) ExpireResetTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, expireResetTokens, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

// execOne runs an update that must touch exactly one user row
func (r *UserRepo) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.DB.Exec(ctx, sql, args...)

	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}
