package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/logger"
	"github.com/drasante/modamart/internal/models"
	authsvc "github.com/drasante/modamart/internal/service/auth"
	"github.com/drasante/modamart/internal/service/csrf"
	"github.com/drasante/modamart/internal/service/ratelimit"
)

// Fakes shared by the handler tests. The router is wired for real, only
// the services behind it are canned.

type fakeAuthCore struct {
	user models.User
	pair models.TokenPair

	// tokens the fake accepts
	accessToken  string
	refreshToken string

	loggedOut      bool
	resetPasswords map[string]string
}

func validPair() models.TokenPair {
	return models.TokenPair{
		Access:  models.IssuedToken{Value: "issued-access", ExpiresAt: time.Now().Add(15 * time.Minute)},
		Refresh: models.IssuedToken{Value: "issued-refresh", ExpiresAt: time.Now().Add(24 * time.Hour)},
	}
}

func newFakeAuthCore() *fakeAuthCore {
	userID := uuid.New()
	return &fakeAuthCore{
		user: models.User{
			ID:            userID,
			Email:         "jane@example.com",
			FullName:      "Jane Doe",
			Role:          models.RoleUser,
			EmailVerified: true,
			CreatedAt:     time.Now(),
		},
		pair:           validPair(),
		accessToken:    "good-access",
		refreshToken:   "good-refresh",
		resetPasswords: map[string]string{},
	}
}

func (f *fakeAuthCore) Signup(_ context.Context, email, _, fullName string) (models.User, error) {
	if email == f.user.Email {
		return models.User{}, apperrors.ErrUserAlreadyExists
	}
	u := f.user
	u.ID = uuid.New()
	u.Email = email
	u.FullName = fullName
	u.EmailVerified = false
	return u, nil
}

func (f *fakeAuthCore) VerifyEmail(_ context.Context, token string) (models.User, error) {
	if token != "valid-verification" {
		return models.User{}, apperrors.ErrVerificationTokenInvalid
	}
	return f.user, nil
}

func (f *fakeAuthCore) Login(_ context.Context, email, password string) (models.User, models.TokenPair, error) {
	if email != f.user.Email || password != "correct-password" {
		return models.User{}, models.TokenPair{}, apperrors.ErrInvalidCredentials
	}
	return f.user, f.pair, nil
}

func (f *fakeAuthCore) Refresh(_ context.Context, raw string) (models.User, models.TokenPair, error) {
	if raw != f.refreshToken {
		return models.User{}, models.TokenPair{}, apperrors.ErrRefreshTokenInvalid
	}
	return f.user, f.pair, nil
}

func (f *fakeAuthCore) Logout(context.Context, uuid.UUID, string) error {
	f.loggedOut = true
	return nil
}

func (f *fakeAuthCore) ForgotPassword(context.Context, string) error { return nil }

func (f *fakeAuthCore) ResetPassword(_ context.Context, token, password string) error {
	if token != "valid-reset" {
		return apperrors.ErrResetTokenInvalid
	}
	f.resetPasswords[token] = password
	return nil
}

func (f *fakeAuthCore) GetUser(_ context.Context, id uuid.UUID) (models.User, error) {
	if id != f.user.ID {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return f.user, nil
}

func (f *fakeAuthCore) IdentityFromAccess(raw string) (models.Identity, error) {
	if raw == f.accessToken {
		return models.Identity{UserID: f.user.ID, Role: f.user.Role}, nil
	}
	if raw == "expired-access" {
		return models.Identity{}, apperrors.ErrTokenExpired
	}
	return models.Identity{}, apperrors.ErrTokenInvalid
}

// fakeSessions keeps sessions and recommendations in maps
type fakeSessions struct {
	sessions        map[uuid.UUID]models.Session
	recommendations map[uuid.UUID]models.Recommendation
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions:        map[uuid.UUID]models.Session{},
		recommendations: map[uuid.UUID]models.Recommendation{},
	}
}

func (f *fakeSessions) CreateSession(_ context.Context, userID *uuid.UUID) (models.Session, error) {
	s := models.Session{ID: uuid.New(), UserID: userID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeSessions) GetSession(_ context.Context, id uuid.UUID) (models.Session, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return models.Session{}, apperrors.ErrSessionNotFound
}

func (f *fakeSessions) CreateRecommendation(_ context.Context, sessionID uuid.UUID) (models.Recommendation, error) {
	rec := models.Recommendation{ID: uuid.New(), SessionID: sessionID, Status: "pending", CreatedAt: time.Now()}
	f.recommendations[rec.ID] = rec
	return rec, nil
}

func (f *fakeSessions) GetRecommendation(_ context.Context, id uuid.UUID) (models.Recommendation, error) {
	if rec, ok := f.recommendations[id]; ok {
		return rec, nil
	}
	return models.Recommendation{}, apperrors.ErrRecommendationNotFound
}

// fakeCleanup answers canned scheduler state
type fakeCleanup struct {
	run        models.CleanupRun
	runErr     error
	status     models.CleanupStatus
	health     models.CleanupHealth
	history    []models.CleanupRun
	manualRuns int
}

func (f *fakeCleanup) Run(context.Context) (models.CleanupRun, error) {
	if f.runErr != nil {
		return models.CleanupRun{}, f.runErr
	}
	f.manualRuns++
	return f.run, nil
}
func (f *fakeCleanup) Status() models.CleanupStatus { return f.status }
func (f *fakeCleanup) Health() models.CleanupHealth { return f.health }
func (f *fakeCleanup) History() []models.CleanupRun { return f.history }

type testEnv struct {
	auth     *fakeAuthCore
	sessions *fakeSessions
	cleanup  *fakeCleanup
	guard    *csrf.Guard
	server   *httptest.Server
}

func newTestEnv(cfg RouterConfig) *testEnv {
	// Roomy budgets; limiter behavior has its own tests
	roomy := ratelimit.Policy{Limit: 1000, Window: time.Hour}
	if cfg.LoginPolicy == (ratelimit.Policy{}) {
		cfg.LoginPolicy = roomy
	}
	if cfg.SignupPolicy == (ratelimit.Policy{}) {
		cfg.SignupPolicy = roomy
	}
	if cfg.ResetPolicy == (ratelimit.Policy{}) {
		cfg.ResetPolicy = roomy
	}
	if cfg.GeneralPolicy == (ratelimit.Policy{}) {
		cfg.GeneralPolicy = roomy
	}

	env := &testEnv{
		auth:     newFakeAuthCore(),
		sessions: newFakeSessions(),
		cleanup:  &fakeCleanup{health: models.CleanupHealth{Healthy: true}},
		guard:    csrf.New("test-csrf-key"),
	}

	router := NewRouter(cfg,
		env.auth,
		env.sessions,
		env.cleanup,
		authsvc.NewTokenTransport(cfg.Production),
		env.guard,
		logger.NewNoOpLogger(),
	)
	env.server = httptest.NewServer(router)
	return env
}

func (e *testEnv) close() { e.server.Close() }

// csrfHeaders returns a matching secret cookie and token header
func (e *testEnv) csrfHeaders() (*http.Cookie, string) {
	secret, err := e.guard.NewSecret()
	if err != nil {
		panic(err)
	}
	token, err := e.guard.Create(secret)
	if err != nil {
		panic(err)
	}
	return &http.Cookie{Name: "csrf_secret", Value: secret}, token
}
