package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/models"
	"github.com/drasante/modamart/internal/repository"
	"github.com/drasante/modamart/internal/testutil"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

// Insert a user the shortest possible way, for tests that only need a row
func createTestUser(t *testing.T, tx pgx.Tx, email string) models.User {
	t.Helper()

	repo := UserRepo{DB: tx}
	user, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
		Email:        email,
		PasswordHash: "hashed-password",
		FullName:     "Test User",
	})
	require.NoError(t, err, "test user should be created")
	return user
}

func Test_UserRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create user ok", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}

			got, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
				Email:        "alice@example.com",
				PasswordHash: "hashed-password",
				FullName:     "Alice A.",
			})

			require.NoError(t, err)
			require.Equal(t, "alice@example.com", got.Email)
			require.Equal(t, "Alice A.", got.FullName)
			require.Equal(t, models.RoleUser, got.Role, "role should default to user")
			require.False(t, got.EmailVerified, "new users start unverified")
			require.Nil(t, got.LastLoginAt)
			require.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
		})
	})

	t.Run("duplicate email fails case insensitively", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			createTestUser(t, tx, "alice@example.com")

			_, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
				Email:        "ALICE@example.com",
				PasswordHash: "other-hash",
			})

			require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("get by email ignores case", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			created := createTestUser(t, tx, "alice@example.com")

			got, err := repo.GetUserByEmail(t.Context(), "Alice@Example.COM")

			require.NoError(t, err)
			require.Equal(t, created.ID, got.ID)
		})
	})

	t.Run("get unknown user", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}

			_, err := repo.GetUserByEmail(t.Context(), "nobody@example.com")

			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("verification token", func(t *testing.T) {
		token := "verification-token-value"
		expires := mustParseTime("2200-01-01 03:00:02Z")

		t.Run("lookup valid", func(t *testing.T) {
			testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
				repo := UserRepo{DB: tx}
				created, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
					Email:                    "bob@example.com",
					PasswordHash:             "hash",
					VerificationToken:        &token,
					VerificationTokenExpires: &expires,
				})
				require.NoError(t, err)

				got, err := repo.GetUserByVerificationToken(t.Context(), token, time.Now())

				require.NoError(t, err)
				require.Equal(t, created.ID, got.ID)
			})
		})

		t.Run("expired behaves like unknown", func(t *testing.T) {
			testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
				repo := UserRepo{DB: tx}
				_, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
					Email:                    "bob@example.com",
					PasswordHash:             "hash",
					VerificationToken:        &token,
					VerificationTokenExpires: &expires,
				})
				require.NoError(t, err)

				_, err = repo.GetUserByVerificationToken(t.Context(), token, expires.Add(time.Second))

				assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})

		t.Run("mark verified clears token", func(t *testing.T) {
			testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
				repo := UserRepo{DB: tx}
				created, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
					Email:                    "bob@example.com",
					PasswordHash:             "hash",
					VerificationToken:        &token,
					VerificationTokenExpires: &expires,
				})
				require.NoError(t, err)

				err = repo.MarkEmailVerified(t.Context(), created.ID)
				require.NoError(t, err)

				got, err := repo.GetUserByID(t.Context(), created.ID)
				require.NoError(t, err)
				require.True(t, got.EmailVerified)
				require.Nil(t, got.VerificationToken)
				require.Nil(t, got.VerificationTokenExpires)
			})
		})
	})

	t.Run("reset token set and consumed by SetPassword", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			created := createTestUser(t, tx, "carol@example.com")

			err := repo.SetResetToken(t.Context(), created.ID, "reset-token", mustParseTime("2200-01-01 03:00:02Z"))
			require.NoError(t, err)

			got, err := repo.GetUserByResetToken(t.Context(), "reset-token", time.Now())
			require.NoError(t, err)
			require.Equal(t, created.ID, got.ID)

			err = repo.SetPassword(t.Context(), created.ID, "new-hash")
			require.NoError(t, err)

			got, err = repo.GetUserByID(t.Context(), created.ID)
			require.NoError(t, err)
			require.Equal(t, "new-hash", got.PasswordHash)
			require.Nil(t, got.ResetPasswordToken, "SetPassword should clear the reset token")
			require.Nil(t, got.ResetPasswordExpires)
		})
	})

	t.Run("touch last login", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			created := createTestUser(t, tx, "dave@example.com")
			at := mustParseTime("2024-06-01 10:00:00Z")

			err := repo.TouchLastLogin(t.Context(), created.ID, at)
			require.NoError(t, err)

			got, err := repo.GetUserByID(t.Context(), created.ID)
			require.NoError(t, err)
			require.NotNil(t, got.LastLoginAt)
			require.WithinDuration(t, at, *got.LastLoginAt, time.Microsecond)
		})
	})

	t.Run("expire sweeps", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{DB: tx}
			token := "stale-token"
			expires := mustParseTime("2024-01-01 00:00:00Z")

			_, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
				Email:                    "stale@example.com",
				PasswordHash:             "hash",
				VerificationToken:        &token,
				VerificationTokenExpires: &expires,
			})
			require.NoError(t, err)

			affected, err := repo.ExpireVerificationTokens(t.Context(), time.Now())
			require.NoError(t, err)
			require.EqualValues(t, 1, affected)

			// Second pass finds nothing: sweep is idempotent
			affected, err = repo.ExpireVerificationTokens(t.Context(), time.Now())
			require.NoError(t, err)
			require.EqualValues(t, 0, affected)

			affected, err = repo.ExpireResetTokens(t.Context(), time.Now())
			require.NoError(t, err)
			require.EqualValues(t, 0, affected, "no reset tokens were set")
		})
	})
}
