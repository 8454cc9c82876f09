// Package handlers holds the Fleetcare HTTP handlers mounted under /v1.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fleetcare/internal/core"
	"fleetcare/internal/scheduler"
	"fleetcare/internal/types"
)

// OverdueScanner runs the daily overdue maintenance scan.
type OverdueScanner interface {
	Run(ctx context.Context, now time.Time, opts ...scheduler.RunOption) (*types.ScanSummary, error)
}

// ScanErrorResponse is the body of a failed scan trigger.
type ScanErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanHandler exposes the scan to an external scheduler.
type ScanHandler struct {
	scanner    OverdueScanner
	cronSecret types.SecretString
	clock      types.Clock
	logger     *slog.Logger
}

// NewScanHandler creates a ScanHandler. A nil clock uses the real UTC clock.
func NewScanHandler(scanner OverdueScanner, cronSecret types.SecretString, clock types.Clock, logger *slog.Logger) *ScanHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanHandler{scanner: scanner, cronSecret: cronSecret, clock: clock, logger: logger}
}

// RegisterRoutes mounts GET and POST /cron/overdue-maintenance behind the
// cron secret.
func (h *ScanHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(core.RequireCronSecret(h.cronSecret))
		r.Get("/cron/overdue-maintenance", h.Trigger)
		r.Post("/cron/overdue-maintenance", h.Trigger)
	})
}

// Trigger runs the scan synchronously and returns its summary. A fatal scan
// error is a 500 with the message and a timestamp.
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	now := h.clock.Now()
	summary, err := h.scanner.Run(r.Context(), now, scheduler.WithTrigger(scheduler.TriggerHTTP))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "overdue scan trigger failed", "error", err)
		core.JSON(w, r, http.StatusInternalServerError, ScanErrorResponse{
			Error:     "Internal server error",
			Message:   err.Error(),
			Timestamp: now.UTC(),
		})
		return
	}
	core.JSON(w, r, http.StatusOK, summary)
}
