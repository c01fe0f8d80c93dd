package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/handlers/middleware"
	"github.com/drasante/modamart/internal/handlers/render"
	"github.com/drasante/modamart/internal/handlers/reqctx"
	"github.com/drasante/modamart/internal/logger"
	"github.com/drasante/modamart/internal/models"
)

type sessionService interface {
	CreateSession(ctx context.Context, userID *uuid.UUID) (models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (models.Session, error)
	CreateRecommendation(ctx context.Context, sessionID uuid.UUID) (models.Recommendation, error)
	GetRecommendation(ctx context.Context, id uuid.UUID) (models.Recommendation, error)
}

type SessionResponse struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type RecommendationResponse struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toSessionResponse(s models.Session) SessionResponse {
	return SessionResponse{ID: s.ID, UserID: s.UserID, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
}

func toRecommendationResponse(rec models.Recommendation) RecommendationResponse {
	return RecommendationResponse{ID: rec.ID, SessionID: rec.SessionID, Status: rec.Status, CreatedAt: rec.CreatedAt}
}

// SessionHandler owns the two resource types the ownership rules apply to
type SessionHandler struct {
	sessions sessionService
	logger   logger.Logger
}

func NewSession(sessions sessionService, l logger.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: l}
}

// createSession binds the new session to the authenticated user when
// there is one, anonymous visitors get unowned sessions. An explicit
// user_id in the body must match the caller unless the caller is an admin
func (h *SessionHandler) createSession(w http.ResponseWriter, r *http.Request) {
	type CreateSessionRequest struct {
		UserID *uuid.UUID `json:"user_id"`
	}

	identity, authenticated := reqctx.IdentityFrom(r.Context())

	var body CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		render.DecodeError(w, err)
		return
	}

	owner := body.UserID
	if owner == nil && authenticated {
		owner = &identity.UserID
	}

	if err := middleware.CheckCreationOwner(body.UserID, identity, authenticated); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrAuthenticationRequired):
			render.ServiceError(w, "Authentication required", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Forbidden", http.StatusForbidden)
		}
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), owner)
	if err != nil {
		h.logger.Error("session creation failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSONWithStatus(w, toSessionResponse(session), http.StatusCreated)
}

// getSession answers from the session the ownership middleware already
// loaded and authorized
func (h *SessionHandler) getSession(w http.ResponseWriter, r *http.Request) {
	session, ok := reqctx.SessionFrom(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	render.JSON(w, toSessionResponse(session))
}

// createRecommendation adds a recommendation to a session the caller may
// access, the ownership middleware has checked the parent already
func (h *SessionHandler) createRecommendation(w http.ResponseWriter, r *http.Request) {
	session, ok := reqctx.SessionFrom(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	rec, err := h.sessions.CreateRecommendation(r.Context(), session.ID)
	if err != nil {
		h.logger.Error("recommendation creation failed",
			"session_id", logger.MaskID(session.ID.String()),
			"error", err.Error(),
		)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSONWithStatus(w, toRecommendationResponse(rec), http.StatusCreated)
}

func (h *SessionHandler) getRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, ok := reqctx.RecommendationFrom(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	render.JSON(w, toRecommendationResponse(rec))
}
