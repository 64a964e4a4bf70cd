package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/field-dispatch/internal/entity"
	"github.com/xavierca1/field-dispatch/internal/usecase"
)

type ScheduleService interface {
	CreateAssignment(ctx context.Context, input usecase.CreateAssignmentInput) (*entity.JobSchedule, error)
	Patch(ctx context.Context, scheduleID string, input usecase.PatchScheduleInput) (*entity.JobSchedule, error)
}

type WeekViewBuilder interface {
	Build(ctx context.Context, ref time.Time) (*usecase.WeekSnapshot, error)
}

type ScheduleHandler struct {
	Ledger   ScheduleService
	WeekView WeekViewBuilder
	Location *time.Location
	Now      func() time.Time
	Logger   *zap.Logger
}

func NewScheduleHandler(ledger ScheduleService, week WeekViewBuilder, loc *time.Location, logger *zap.Logger) *ScheduleHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleHandler{
		Ledger:   ledger,
		WeekView: week,
		Location: loc,
		Now:      time.Now,
		Logger:   logger,
	}
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.CreateAssignmentInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	s, err := h.Ledger.CreateAssignment(r.Context(), input)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// Patch covers reschedule, reassign, status change and notes; any
// combination may be sent in one request.
func (h *ScheduleHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var input usecase.PatchScheduleInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	s, err := h.Ledger.Patch(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Week serves the calendar for the week containing ?date= (default today).
func (h *ScheduleHandler) Week(w http.ResponseWriter, r *http.Request) {
	ref := h.Now().In(h.Location)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(entity.DateLayout, raw, h.Location)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, usecase.CodeValidation, "date must be YYYY-MM-DD")
			return
		}
		ref = parsed
	}

	snap, err := h.WeekView.Build(r.Context(), ref)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
