package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/drasante/modamart/internal/db"
	"github.com/drasante/modamart/internal/handlers"
	"github.com/drasante/modamart/internal/logger"
	"github.com/drasante/modamart/internal/repository/postgres"
	"github.com/drasante/modamart/internal/secrets"
	"github.com/drasante/modamart/internal/service/auth"
	"github.com/drasante/modamart/internal/service/cleanup"
	"github.com/drasante/modamart/internal/service/csrf"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Cleanup    *cleanup.Scheduler
}

// resolveSecrets checks every configured secret. In production a weak or
// missing secret aborts startup, anywhere else a dev fallback is
// substituted with a loud warning
func resolveSecrets(c *Config, log logger.Logger) error {
	production := c.Environment == logger.EnvProduction

	checks := []struct {
		name   string
		value  *string
		minLen int
	}{
		{"ACCESS_SECRET", &c.AccessSecret, secrets.MinSecretLen},
		{"REFRESH_SECRET", &c.RefreshSecret, secrets.MinSecretLen},
		{"CSRF_KEY", &c.CSRFKey, secrets.MinSecretLen},
		{"ADMIN_KEY", &c.AdminKey, secrets.MinAdminKeyLen},
	}

	for _, check := range checks {
		err := secrets.Validate(check.name, *check.value, check.minLen, production)
		if err == nil {
			continue
		}
		if production {
			return fmt.Errorf("refusing to start: %w", err)
		}
		*check.value = secrets.Fallback(check.name)
		log.Warn("using development fallback secret, never deploy this",
			"secret", check.name,
		)
	}

	return nil
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	if err := resolveSecrets(c, log); err != nil {
		return nil, err
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	production := c.Environment == logger.EnvProduction

	// Initialize services
	authService, err := auth.NewAuthService(auth.Config{
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
		Logger:        log,
	}, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	csrfGuard := csrf.New(c.CSRFKey)
	transport := auth.NewTokenTransport(production)

	cleanupScheduler := cleanup.NewScheduler(cleanup.Config{
		Environment: c.Environment,
		Enabled:     c.CleanupEnabled,
		Logger:      log,
	}, storage)
	if err := cleanupScheduler.Start(ctx); err != nil {
		return nil, fmt.Errorf("error while starting cleanup scheduler. Err: %w", err)
	}

	mux := handlers.NewRouter(
		handlers.RouterConfig{
			Production: production,
			AdminKey:   c.AdminKey,
		},
		authService,
		storage.Session(),
		cleanupScheduler,
		transport,
		csrfGuard,
		log,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		Cleanup:    cleanupScheduler,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.Cleanup.Stop()
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
