package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/models"
	"github.com/drasante/modamart/internal/testutil"
)

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	newToken := func(userID uuid.UUID, value string) models.RefreshToken {
		return models.RefreshToken{
			ID:        uuid.New(),
			UserID:    userID,
			Token:     value,
			CreatedAt: mustParseTime("2024-01-01 19:00:01Z"),
			ExpiresAt: mustParseTime("2200-01-01 03:00:02Z"),
		}
	}

	t.Run("save and get valid", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			user := createTestUser(t, tx, "alice@example.com")
			token := newToken(user.ID, "secret-token")

			err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			got, err := repo.GetValid(t.Context(), token.Token, time.Now())

			require.NoError(t, err)
			require.Equal(t, token.ID, got.ID)
			require.Equal(t, token.UserID, got.UserID)
			require.Equal(t, token.Token, got.Token)
			require.WithinDuration(t, token.CreatedAt, got.CreatedAt, time.Microsecond)
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, time.Microsecond)
		})
	})

	t.Run("get unknown token", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}

			_, err := repo.GetValid(t.Context(), "never-issued", time.Now())

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("expired token filtered by query", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			user := createTestUser(t, tx, "alice@example.com")
			token := newToken(user.ID, "secret-token")

			err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			_, err = repo.GetValid(t.Context(), token.Token, token.ExpiresAt.Add(time.Second))

			assert.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound, "expired token must behave like unknown token")
		})
	})

	t.Run("delete reports affected row", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			user := createTestUser(t, tx, "alice@example.com")
			token := newToken(user.ID, "secret-token")

			err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			deleted, err := repo.Delete(t.Context(), token.Token)
			require.NoError(t, err)
			require.True(t, deleted, "first delete removes the row")

			deleted, err = repo.Delete(t.Context(), token.Token)
			require.NoError(t, err)
			require.False(t, deleted, "second delete finds nothing, this is how the rotation race is decided")
		})
	})

	t.Run("delete all for user", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			alice := createTestUser(t, tx, "alice@example.com")
			bob := createTestUser(t, tx, "bob@example.com")

			require.NoError(t, repo.Save(t.Context(), newToken(alice.ID, "alice-1")))
			require.NoError(t, repo.Save(t.Context(), newToken(alice.ID, "alice-2")))
			require.NoError(t, repo.Save(t.Context(), newToken(bob.ID, "bob-1")))

			affected, err := repo.DeleteAllForUser(t.Context(), alice.ID)
			require.NoError(t, err)
			require.EqualValues(t, 2, affected)

			_, err = repo.GetValid(t.Context(), "bob-1", time.Now())
			require.NoError(t, err, "other user's tokens must survive")
		})
	})

	t.Run("delete expired", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			user := createTestUser(t, tx, "alice@example.com")

			stale := newToken(user.ID, "stale")
			stale.ExpiresAt = mustParseTime("2024-01-02 00:00:00Z")
			require.NoError(t, repo.Save(t.Context(), stale))
			require.NoError(t, repo.Save(t.Context(), newToken(user.ID, "fresh")))

			affected, err := repo.DeleteExpired(t.Context(), time.Now())
			require.NoError(t, err)
			require.EqualValues(t, 1, affected)

			// Nothing left to delete on the second pass
			affected, err = repo.DeleteExpired(t.Context(), time.Now())
			require.NoError(t, err)
			require.EqualValues(t, 0, affected)

			_, err = repo.GetValid(t.Context(), "fresh", time.Now())
			require.NoError(t, err)
		})
	})
}
