package handlers

import (
	"net/http"
	"time"

	"github.com/drasante/modamart/internal/handlers/middleware"
	"github.com/drasante/modamart/internal/handlers/render"
	"github.com/drasante/modamart/internal/logger"
	"github.com/drasante/modamart/internal/models"
	authsvc "github.com/drasante/modamart/internal/service/auth"
	"github.com/drasante/modamart/internal/service/csrf"
	"github.com/drasante/modamart/internal/service/ratelimit"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// authCore is the full auth surface the router wires: the flow methods
// for handlers plus token verification for the middleware
type authCore interface {
	authService
	IdentityFromAccess(raw string) (models.Identity, error)
}

// Per endpoint class budgets. Login refunds successes, so only failed
// attempts burn its budget
var (
	DefaultLoginPolicy   = ratelimit.Policy{Limit: 5, Window: 15 * time.Minute}
	DefaultSignupPolicy  = ratelimit.Policy{Limit: 3, Window: time.Hour}
	DefaultResetPolicy   = ratelimit.Policy{Limit: 3, Window: time.Hour}
	DefaultGeneralPolicy = ratelimit.Policy{Limit: 100, Window: 15 * time.Minute}
)

type RouterConfig struct {
	Production bool
	AdminKey   string

	// Zero-valued policies fall back to the package defaults
	LoginPolicy   ratelimit.Policy
	SignupPolicy  ratelimit.Policy
	ResetPolicy   ratelimit.Policy
	GeneralPolicy ratelimit.Policy
}

func NewRouter(
	cfg RouterConfig,
	auth authCore,
	sessions sessionService,
	cleanup cleanupService,
	transport *authsvc.TokenTransport,
	csrfGuard *csrf.Guard,
	l logger.Logger,
) http.Handler {
	if cfg.LoginPolicy == (ratelimit.Policy{}) {
		cfg.LoginPolicy = DefaultLoginPolicy
	}
	if cfg.SignupPolicy == (ratelimit.Policy{}) {
		cfg.SignupPolicy = DefaultSignupPolicy
	}
	if cfg.ResetPolicy == (ratelimit.Policy{}) {
		cfg.ResetPolicy = DefaultResetPolicy
	}
	if cfg.GeneralPolicy == (ratelimit.Policy{}) {
		cfg.GeneralPolicy = DefaultGeneralPolicy
	}

	loginLimiter := ratelimit.New(cfg.LoginPolicy)
	signupLimiter := ratelimit.New(cfg.SignupPolicy)
	resetLimiter := ratelimit.New(cfg.ResetPolicy)
	generalLimiter := ratelimit.New(cfg.GeneralPolicy)

	authHandler := NewAuth(auth, transport, csrfGuard, cfg.Production, l)
	sessionHandler := NewSession(sessions, l)
	adminHandler := NewAdmin(cleanup, l)

	requireAuth := middleware.Authenticate(auth, transport)
	optionalAuth := middleware.OptionalAuth(auth, transport, l)
	csrfCheck := middleware.CSRF(csrfGuard, l)
	sessionOwned := middleware.SessionOwnership(sessions, l)
	recOwned := middleware.RecommendationOwnership(sessions, l)
	limitLogin := middleware.RateLimitForgiving(loginLimiter, cfg.LoginPolicy.Limit, l)
	limitSignup := middleware.RateLimit(signupLimiter, cfg.SignupPolicy.Limit, l)
	limitReset := middleware.RateLimit(resetLimiter, cfg.ResetPolicy.Limit, l)
	adminOnly := middleware.AdminKey(cfg.AdminKey, l)

	mux := http.NewServeMux()

	// Signup and login take CSRF too: login CSRF lets an attacker sign the
	// victim into an attacker-controlled account
	mux.Handle("POST /api/auth/signup", chain(http.HandlerFunc(authHandler.signup), limitSignup, csrfCheck))
	mux.Handle("POST /api/auth/verify-email", http.HandlerFunc(authHandler.verifyEmail))
	mux.Handle("POST /api/auth/login", chain(http.HandlerFunc(authHandler.login), limitLogin, csrfCheck))
	mux.Handle("POST /api/auth/refresh", http.HandlerFunc(authHandler.refresh))
	mux.Handle("POST /api/auth/logout", chain(http.HandlerFunc(authHandler.logout), requireAuth, csrfCheck))
	mux.Handle("GET /api/auth/me", chain(http.HandlerFunc(authHandler.me), requireAuth))
	mux.Handle("POST /api/auth/forgot-password", chain(http.HandlerFunc(authHandler.forgotPassword), limitReset))
	mux.Handle("POST /api/auth/reset-password", chain(http.HandlerFunc(authHandler.resetPassword), limitReset))
	mux.Handle("GET /api/auth/csrf", http.HandlerFunc(authHandler.csrfToken))

	mux.Handle("POST /api/sessions",
		chain(http.HandlerFunc(sessionHandler.createSession), optionalAuth, csrfCheck))
	mux.Handle("GET /api/sessions/{sessionID}",
		chain(http.HandlerFunc(sessionHandler.getSession), optionalAuth, sessionOwned))
	mux.Handle("POST /api/sessions/{sessionID}/recommendations",
		chain(http.HandlerFunc(sessionHandler.createRecommendation), optionalAuth, csrfCheck, sessionOwned))
	mux.Handle("GET /api/recommendations/{recommendationID}",
		chain(http.HandlerFunc(sessionHandler.getRecommendation), optionalAuth, recOwned))

	mux.Handle("GET /api/admin/cleanup", chain(http.HandlerFunc(adminHandler.cleanupStatus), adminOnly))
	mux.Handle("POST /api/admin/cleanup/run", chain(http.HandlerFunc(adminHandler.cleanupRun), adminOnly))

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		health := cleanup.Health()
		code := http.StatusOK
		if !health.Healthy {
			code = http.StatusServiceUnavailable
		}
		render.JSONWithStatus(w, health, code)
	})

	return chain(mux,
		middleware.LoggerMiddleware(l),
		middleware.RateLimit(generalLimiter, cfg.GeneralPolicy.Limit, l),
	)
}
