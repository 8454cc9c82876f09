package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fleetcare/internal/core"
	"fleetcare/internal/maintenance"
	"fleetcare/internal/types"
)

type mockRecordService struct {
	mock.Mock
}

func (m *mockRecordService) Create(ctx context.Context, userID, vehicleID, scheduleID string, in maintenance.RecordInput) (*maintenance.RecordResult, error) {
	args := m.Called(ctx, userID, vehicleID, scheduleID, in)
	res, _ := args.Get(0).(*maintenance.RecordResult)
	return res, args.Error(1)
}

func (m *mockRecordService) Update(ctx context.Context, userID, recordID string, patch maintenance.RecordPatch) (*maintenance.RecordResult, error) {
	args := m.Called(ctx, userID, recordID, patch)
	res, _ := args.Get(0).(*maintenance.RecordResult)
	return res, args.Error(1)
}

func (m *mockRecordService) Delete(ctx context.Context, userID, recordID string) (*maintenance.RecordResult, error) {
	args := m.Called(ctx, userID, recordID)
	res, _ := args.Get(0).(*maintenance.RecordResult)
	return res, args.Error(1)
}

// asUser stands in for session middleware.
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID != "" {
				r = r.WithContext(types.WithActor(r.Context(), types.Actor{ID: userID, Type: types.ActorTypeUser}))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newRecordRouter(svc RecordService, userID string) http.Handler {
	h := NewRecordHandler(svc, core.NewValidator(), discardLogger())
	r := chi.NewRouter()
	r.Route("/v1", h.RegisterRoutes(asUser(userID)))
	return r
}

func sampleResult() *maintenance.RecordResult {
	due := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	return &maintenance.RecordResult{
		Record:   &types.MaintenanceRecord{ID: "rec-1", ScheduleID: "sch-1", VehicleID: "veh-1", UserID: "user-1"},
		Schedule: &types.MaintenanceSchedule{ID: "sch-1", NextDueDate: &due},
	}
}

func TestRecordCreate(t *testing.T) {
	svc := new(mockRecordService)
	completed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mileage := 52000
	svc.On("Create", mock.Anything, "user-1", "veh-1", "sch-1", maintenance.RecordInput{
		CompletedAt:         completed,
		MileageAtCompletion: &mileage,
		Notes:               "synthetic",
	}).Return(sampleResult(), nil)

	body := `{"completed_at":"2024-06-01T00:00:00Z","mileage_at_completion":52000,"notes":"synthetic"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/vehicles/veh-1/schedules/sch-1/records", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newRecordRouter(svc, "user-1").ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var got maintenance.RecordResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "rec-1", got.Record.ID)
	svc.AssertExpectations(t)
}

func TestRecordCreate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code types.ErrorCode
	}{
		{"missing completed_at", `{"notes":"x"}`, types.ErrCodeValidationRequestFields},
		{"negative mileage", `{"completed_at":"2024-06-01T00:00:00Z","mileage_at_completion":-1}`, types.ErrCodeValidationRequestFields},
		{"unknown field", `{"completed_at":"2024-06-01T00:00:00Z","odo":1}`, types.ErrCodeValidationInvalidJSON},
		{"malformed", `{`, types.ErrCodeValidationInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockRecordService)
			req := httptest.NewRequest(http.MethodPost, "/v1/vehicles/veh-1/schedules/sch-1/records", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			newRecordRouter(svc, "user-1").ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), string(tt.code))
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRecordCreate_NotOwnedIs404(t *testing.T) {
	svc := new(mockRecordService)
	svc.On("Create", mock.Anything, "user-2", "veh-1", "sch-1", mock.Anything).
		Return(nil, types.NewAppError(types.ErrCodeNotFoundVehicle, "vehicle not found", nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/vehicles/veh-1/schedules/sch-1/records",
		strings.NewReader(`{"completed_at":"2024-06-01T00:00:00Z"}`))
	rec := httptest.NewRecorder()
	newRecordRouter(svc, "user-2").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found_vehicle")
}

func TestRecordUpdate(t *testing.T) {
	svc := new(mockRecordService)
	notes := "replaced filter too"
	svc.On("Update", mock.Anything, "user-1", "rec-1", maintenance.RecordPatch{Notes: &notes, ClearMileage: true}).
		Return(sampleResult(), nil)

	req := httptest.NewRequest(http.MethodPatch, "/v1/records/rec-1",
		strings.NewReader(`{"notes":"replaced filter too","clear_mileage":true}`))
	rec := httptest.NewRecorder()
	newRecordRouter(svc, "user-1").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestRecordDelete(t *testing.T) {
	svc := new(mockRecordService)
	svc.On("Delete", mock.Anything, "user-1", "rec-1").Return(sampleResult(), nil)
	svc.On("Delete", mock.Anything, "user-1", "missing").
		Return(nil, types.NewAppError(types.ErrCodeNotFoundRecord, "record not found", nil))

	rec := httptest.NewRecorder()
	newRecordRouter(svc, "user-1").ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/records/rec-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"schedule"`)

	rec = httptest.NewRecorder()
	newRecordRouter(svc, "user-1").ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/records/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordRoutes_RequireUserActor(t *testing.T) {
	svc := new(mockRecordService)
	rec := httptest.NewRecorder()
	newRecordRouter(svc, "").ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/records/rec-1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}
