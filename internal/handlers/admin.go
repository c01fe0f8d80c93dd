package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/drasante/modamart/internal/apperrors"
	"github.com/drasante/modamart/internal/handlers/render"
	"github.com/drasante/modamart/internal/logger"
	"github.com/drasante/modamart/internal/models"
)

type cleanupService interface {
	Run(ctx context.Context) (models.CleanupRun, error)
	Status() models.CleanupStatus
	Health() models.CleanupHealth
	History() []models.CleanupRun
}

type CleanupRunResponse struct {
	Timestamp                 time.Time `json:"timestamp"`
	RefreshTokensDeleted      int64     `json:"refresh_tokens_deleted"`
	VerificationTokensExpired int64     `json:"verification_tokens_expired"`
	ResetTokensExpired        int64     `json:"reset_tokens_expired"`
	Total                     int64     `json:"total"`
	DurationMS                int64     `json:"duration_ms"`
}

func toCleanupRunResponse(run models.CleanupRun) CleanupRunResponse {
	return CleanupRunResponse{
		Timestamp:                 run.Timestamp,
		RefreshTokensDeleted:      run.RefreshTokensDeleted,
		VerificationTokensExpired: run.VerificationTokensExpired,
		ResetTokensExpired:        run.ResetTokensExpired,
		Total:                     run.Total(),
		DurationMS:                run.DurationMS,
	}
}

// AdminHandler exposes the cleanup scheduler behind the admin key
type AdminHandler struct {
	cleanup cleanupService
	logger  logger.Logger
}

func NewAdmin(cleanup cleanupService, l logger.Logger) *AdminHandler {
	return &AdminHandler{cleanup: cleanup, logger: l}
}

func (h *AdminHandler) cleanupStatus(w http.ResponseWriter, r *http.Request) {
	type StatusResponse struct {
		Status  models.CleanupStatus `json:"status"`
		Health  models.CleanupHealth `json:"health"`
		History []CleanupRunResponse `json:"history"`
	}

	history := h.cleanup.History()
	runs := make([]CleanupRunResponse, 0, len(history))
	for _, run := range history {
		runs = append(runs, toCleanupRunResponse(run))
	}

	render.JSON(w, StatusResponse{
		Status:  h.cleanup.Status(),
		Health:  h.cleanup.Health(),
		History: runs,
	})
}

func (h *AdminHandler) cleanupRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.cleanup.Run(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrCleanupInProgress):
			render.ServiceError(w, "Cleanup already running", http.StatusConflict)
		default:
			h.logger.Error("manual cleanup failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, toCleanupRunResponse(run))
}
