package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fleetcare/internal/core"
	"fleetcare/internal/maintenance"
	"fleetcare/internal/types"
)

// RecordService is the record mutation API of maintenance.RecordService.
type RecordService interface {
	Create(ctx context.Context, userID, vehicleID, scheduleID string, in maintenance.RecordInput) (*maintenance.RecordResult, error)
	Update(ctx context.Context, userID, recordID string, patch maintenance.RecordPatch) (*maintenance.RecordResult, error)
	Delete(ctx context.Context, userID, recordID string) (*maintenance.RecordResult, error)
}

// RecordHandler serves the completion record endpoints. Every route needs a
// user session; records are scoped to the session's user.
type RecordHandler struct {
	service   RecordService
	validator *core.Validator
	logger    *slog.Logger
}

// NewRecordHandler creates a RecordHandler.
func NewRecordHandler(service RecordService, validator *core.Validator, logger *slog.Logger) *RecordHandler {
	if validator == nil {
		validator = core.NewValidator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordHandler{service: service, validator: validator, logger: logger}
}

// RegisterRoutes mounts the record routes behind session authentication.
func (h *RecordHandler) RegisterRoutes(requireSession func(http.Handler) http.Handler) core.RouteRegistrar {
	return func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Post("/vehicles/{vehicleID}/schedules/{scheduleID}/records", h.Create)
			r.Patch("/records/{recordID}", h.Update)
			r.Delete("/records/{recordID}", h.Delete)
		})
	}
}

// Create handles POST /v1/vehicles/{vehicleID}/schedules/{scheduleID}/records.
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var in maintenance.RecordInput
	if err := core.DecodeJSON(w, r, &in); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(in); err != nil {
		core.Error(w, r, err)
		return
	}

	res, err := h.service.Create(r.Context(), userID, chi.URLParam(r, "vehicleID"), chi.URLParam(r, "scheduleID"), in)
	if err != nil {
		h.fail(w, r, "create", err)
		return
	}
	core.JSON(w, r, http.StatusCreated, res)
}

// Update handles PATCH /v1/records/{recordID}.
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var patch maintenance.RecordPatch
	if err := core.DecodeJSON(w, r, &patch); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(patch); err != nil {
		core.Error(w, r, err)
		return
	}

	res, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "recordID"), patch)
	if err != nil {
		h.fail(w, r, "update", err)
		return
	}
	core.JSON(w, r, http.StatusOK, res)
}

// Delete handles DELETE /v1/records/{recordID}. The response carries the
// recalculated schedule.
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	res, err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "recordID"))
	if err != nil {
		h.fail(w, r, "delete", err)
		return
	}
	core.JSON(w, r, http.StatusOK, res)
}

func (h *RecordHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !types.IsNotFound(err) {
		h.logger.ErrorContext(r.Context(), "record "+op+" failed", "error", err)
	}
	core.Error(w, r, err)
}

func sessionUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor, ok := types.GetActor(r.Context())
	if !ok || actor.Type != types.ActorTypeUser || actor.ID == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return "", false
	}
	return actor.ID, true
}
