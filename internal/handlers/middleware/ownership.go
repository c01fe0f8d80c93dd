package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/handlers/render"
	"github.com/drasante/modamart/internal/handlers/reqctx"
	applogger "github.com/drasante/modamart/internal/logger"
	"github.com/drasante/modamart/internal/models"
)

// resourceStore loads the resources whose ownership is checked
type resourceStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (models.Session, error)
	GetRecommendation(ctx context.Context, id uuid.UUID) (models.Recommendation, error)
}

// allowed decides one ownership check. Unowned resources are public,
// owned resources require the owner or an admin
func allowed(s models.Session, identity models.Identity, authenticated bool) bool {
	owner, owned := s.Owner()
	if !owned {
		return true
	}
	if !authenticated {
		return false
	}
	return owner == identity.UserID || identity.Role.IsAdmin()
}

// SessionOwnership guards routes with a {sessionID} path value. Unknown
// ids answer 404 before any ownership question, a wrong owner gets 403.
// The loaded session rides along in the context
func SessionOwnership(store resourceStore, log logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(r.PathValue("sessionID"))
			if err != nil {
				render.ServiceError(w, "Session not found", http.StatusNotFound)
				return
			}

			session, err := store.GetSession(r.Context(), id)
			if err != nil {
				if errors.Is(err, apperrors.ErrSessionNotFound) {
					render.ServiceError(w, "Session not found", http.StatusNotFound)
					return
				}
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			identity, authenticated := reqctx.IdentityFrom(r.Context())
			if !allowed(session, identity, authenticated) {
				logDenied(log, r, identity, authenticated, "session", session.ID)
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
				return
			}

			ctx := reqctx.WithSession(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RecommendationOwnership guards routes with a {recommendationID} path
// value. Ownership is inherited from the parent session
func RecommendationOwnership(store resourceStore, log logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(r.PathValue("recommendationID"))
			if err != nil {
				render.ServiceError(w, "Recommendation not found", http.StatusNotFound)
				return
			}

			rec, err := store.GetRecommendation(r.Context(), id)
			if err != nil {
				if errors.Is(err, apperrors.ErrRecommendationNotFound) {
					render.ServiceError(w, "Recommendation not found", http.StatusNotFound)
					return
				}
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			session, err := store.GetSession(r.Context(), rec.SessionID)
			if err != nil {
				// The parent session is gone, treat the child as gone too
				render.ServiceError(w, "Recommendation not found", http.StatusNotFound)
				return
			}

			identity, authenticated := reqctx.IdentityFrom(r.Context())
			if !allowed(session, identity, authenticated) {
				logDenied(log, r, identity, authenticated, "recommendation", rec.ID)
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
				return
			}

			ctx := reqctx.WithRecommendation(r.Context(), rec)
			ctx = reqctx.WithSession(ctx, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CheckCreationOwner validates that a resource being created is not
// attributed to somebody else. nil requestedOwner means unowned, always
// fine. Admins may create on behalf of anyone
func CheckCreationOwner(requestedOwner *uuid.UUID, identity models.Identity, authenticated bool) error {
	if requestedOwner == nil {
		return nil
	}
	if !authenticated {
		return apperrors.ErrAuthenticationRequired
	}
	if *requestedOwner != identity.UserID && !identity.Role.IsAdmin() {
		return apperrors.ErrForbidden
	}
	return nil
}

func logDenied(log logger, r *http.Request, identity models.Identity, authenticated bool, kind string, id uuid.UUID) {
	subject := "anonymous"
	if authenticated {
		subject = applogger.MaskID(identity.UserID.String())
	}
	log.Warn("ownership check denied",
		"resource", kind,
		"resource_id", applogger.MaskID(id.String()),
		"subject", subject,
		"path", r.URL.Path,
	)
}
