// Package cleanup sweeps expired authentication artifacts on a schedule:
// stale refresh tokens are deleted, spent verification and reset token
// columns are cleared. Every sweep is idempotent, running twice in a row
// just finds nothing the second time.
package cleanup

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/logger"
	"github.com/drasante/modamart/internal/models"
	"github.com/drasante/modamart/internal/repository"
)

const (
	// Cron schedules per environment. Production sweeps hourly, everything
	// else every six hours to keep test databases quiet
	ScheduleProduction = "0 * * * *"
	ScheduleDefault    = "0 */6 * * *"

	// A scheduler that has not completed a run within these bounds is
	// reported unhealthy. Thresholds sit one hour past the schedule
	// period, so a single missed tick already trips them
	healthyAgeProduction = 25 * time.Hour
	healthyAgeDefault    = 150 * time.Hour

	// History ring capacity, about a day of hourly production runs
	historyLen = 24
)

type Config struct {
	// Environment selects schedule and health threshold,
	// logger.EnvProduction or anything else
	Environment string

	// Enabled starts the cron loop. Manual runs work either way
	Enabled bool

	Logger logger.Logger
}

// Scheduler owns the periodic cleanup job
type Scheduler struct {
	storage     repository.Storage
	logger      logger.Logger
	environment string
	enabled     bool

	cron *cron.Cron

	// running guards against overlapping sweeps, scheduled or manual
	running atomic.Bool

	mu      sync.Mutex
	history []models.CleanupRun

	// now is replaceable in tests
	now func() time.Time
}

func NewScheduler(cfg Config, storage repository.Storage) *Scheduler {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Scheduler{
		storage:     storage,
		logger:      log,
		environment: cfg.Environment,
		enabled:     cfg.Enabled,
		now:         time.Now,
	}
}

func (s *Scheduler) schedule() string {
	if s.environment == logger.EnvProduction {
		return ScheduleProduction
	}
	return ScheduleDefault
}

func (s *Scheduler) healthyAge() time.Duration {
	if s.environment == logger.EnvProduction {
		return healthyAgeProduction
	}
	return healthyAgeDefault
}

// Start begins the cron loop. A no-op when the scheduler is disabled
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.enabled {
		s.logger.Info("cleanup scheduler disabled")
		return nil
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule(), func() {
		if _, err := s.Run(ctx); err != nil {
			s.logger.Error("scheduled cleanup failed", "error", err.Error())
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cleanup scheduler started", "schedule", s.schedule())
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("cleanup scheduler stopped")
}

// Run executes one sweep. When a sweep is already in flight the call is
// skipped with apperrors.ErrCleanupInProgress, it never queues up
func (s *Scheduler) Run(ctx context.Context) (models.CleanupRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("cleanup skipped, previous run still in progress")
		return models.CleanupRun{}, apperrors.ErrCleanupInProgress
	}
	defer s.running.Store(false)

	started := s.now()
	run := models.CleanupRun{Timestamp: started}

	// The three sweeps are independent, one failing leaves the others done
	tokens, err := s.storage.Refresh().DeleteExpired(ctx, started)
	if err != nil {
		return run, err
	}
	run.RefreshTokensDeleted = tokens

	verifications, err := s.storage.User().ExpireVerificationTokens(ctx, started)
	if err != nil {
		return run, err
	}
	run.VerificationTokensExpired = verifications

	resets, err := s.storage.User().ExpireResetTokens(ctx, started)
	if err != nil {
		return run, err
	}
	run.ResetTokensExpired = resets

	run.Duration = s.now().Sub(started)
	run.DurationMS = run.Duration.Milliseconds()

	s.record(run)

	s.logger.Info("cleanup run finished",
		"refresh_tokens_deleted", run.RefreshTokensDeleted,
		"verification_tokens_expired", run.VerificationTokensExpired,
		"reset_tokens_expired", run.ResetTokensExpired,
		"duration_ms", run.DurationMS,
	)
	return run, nil
}

func (s *Scheduler) record(run models.CleanupRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, run)
	if len(s.history) > historyLen {
		s.history = s.history[len(s.history)-historyLen:]
	}
}

// History returns recent runs, newest last
func (s *Scheduler) History() []models.CleanupRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CleanupRun, len(s.history))
	copy(out, s.history)
	return out
}

// Status reports the scheduler state for the admin surface
func (s *Scheduler) Status() models.CleanupStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := models.CleanupStatus{
		IsRunning:        s.running.Load(),
		SchedulerEnabled: s.enabled,
		HistoryEntries:   len(s.history),
		Environment:      s.environment,
	}
	if n := len(s.history); n > 0 {
		last := s.history[n-1].Timestamp
		status.LastCleanup = &last
	}
	return status
}

// Health reports whether cleanup has completed recently enough
func (s *Scheduler) Health() models.CleanupHealth {
	status := s.Status()

	if !s.enabled {
		return models.CleanupHealth{Healthy: true, Issue: "scheduler disabled"}
	}
	if status.LastCleanup == nil {
		// Nothing ran yet, normal right after startup
		return models.CleanupHealth{Healthy: true, Issue: "no runs recorded yet"}
	}

	age := s.now().Sub(*status.LastCleanup)
	health := models.CleanupHealth{
		Healthy:       age <= s.healthyAge(),
		HoursSinceRun: age.Hours(),
	}
	if !health.Healthy {
		health.Issue = "last cleanup run is too old"
	}
	return health
}
