// Package reqctx carries authenticated request state through the
// middleware chain. It lives apart from handlers and middleware so both
// can import it.
package reqctx

import (
	"context"

	"github.com/drasante/modamart/internal/models"
)

type ctxKey string

const (
	identityKey       ctxKey = "identity"
	sessionKey        ctxKey = "session"
	recommendationKey ctxKey = "recommendation"
)

// Create a new context with the authenticated identity
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Extract the identity from the context. ok is false on anonymous requests
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}

// Attach a session already cleared by the ownership check, handlers can
// use it without a second lookup
func WithSession(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFrom(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(sessionKey).(models.Session)
	return s, ok
}

func WithRecommendation(ctx context.Context, rec models.Recommendation) context.Context {
	return context.WithValue(ctx, recommendationKey, rec)
}

func RecommendationFrom(ctx context.Context) (models.Recommendation, bool) {
	rec, ok := ctx.Value(recommendationKey).(models.Recommendation)
	return rec, ok
}
