package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/models"
)

type SessionRepo struct {
	DB DBTX
}

func rowToSession(row pgx.CollectableRow) (models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

const createSession = `-- name: CreateSession
INSERT INTO sessions (id, user_id)
VALUES ($1, $2)
RETURNING id, user_id, created_at, updated_at
`

func (r *SessionRepo) CreateSession(ctx context.Context, userID *uuid.UUID) (models.Session, error) {
	rows, _ := r.DB.Query(ctx, createSession, uuid.New(), userID)
	session, err := pgx.CollectOneRow(rows, rowToSession)
	if err != nil {
		return session, fmt.Errorf("db error: %w", err)
	}

	return session, nil
}

const getSession = `-- name: GetSession
SELECT id, user_id, created_at, updated_at
FROM sessions
WHERE id = $1
`

func (r *SessionRepo) GetSession(ctx context.Context, id uuid.UUID) (models.Session, error) {
	rows, _ := r.DB.Query(ctx, getSession, id)
	session, err := pgx.CollectOneRow(rows, rowToSession)

	switch {
	case err == nil:
		return session, nil
	case errors.Is(err, pgx.ErrNoRows):
		return session, apperrors.ErrSessionNotFound
	default:
		return session, fmt.Errorf("db error: %w", err)
	}
}

func rowToRecommendation(row pgx.CollectableRow) (models.Recommendation, error) {
	var rec models.Recommendation
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.Status, &rec.CreatedAt)
	return rec, err
}

const createRecommendation = `-- name: CreateRecommendation
INSERT INTO recommendations (id, session_id)
VALUES ($1, $2)
RETURNING id, session_id, status, created_at
`

func (r *SessionRepo) CreateRecommendation(ctx context.Context, sessionID uuid.UUID) (models.Recommendation, error) {
	rows, _ := r.DB.Query(ctx, createRecommendation, uuid.New(), sessionID)
	rec, err := pgx.CollectOneRow(rows, rowToRecommendation)
	if err != nil {
		return rec, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

const getRecommendation = `-- name: GetRecommendation
SELECT id, session_id, status, created_at
FROM recommendations
WHERE id = $1
`

func (r *SessionRepo) GetRecommendation(ctx context.Context, id uuid.UUID) (models.Recommendation, error) {
	rows, _ := r.DB.Query(ctx, getRecommendation, id)
	rec, err := pgx.CollectOneRow(rows, rowToRecommendation)

	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, pgx.ErrNoRows):
		return rec, apperrors.ErrRecommendationNotFound
	default:
		return rec, fmt.Errorf("db error: %w", err)
	}
}
