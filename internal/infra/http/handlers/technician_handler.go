package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/field-dispatch/internal/entity"
	"github.com/xavierca1/field-dispatch/internal/usecase"
)

type TechnicianService interface {
	ListActive(ctx context.Context) ([]*entity.TechnicianSummary, error)
	Get(ctx context.Context, id string) (*entity.Technician, error)
	Register(ctx context.Context, input usecase.RegisterTechnicianInput) (*entity.Technician, error)
	Update(ctx context.Context, id string, input usecase.UpdateTechnicianInput) (*entity.Technician, error)
	Deactivate(ctx context.Context, id string) (*entity.Technician, error)
}

type TechnicianHandler struct {
	Service TechnicianService
	Logger  *zap.Logger
}

func NewTechnicianHandler(service TechnicianService, logger *zap.Logger) *TechnicianHandler {
	return &TechnicianHandler{Service: service, Logger: logger}
}

func (h *TechnicianHandler) List(w http.ResponseWriter, r *http.Request) {
	techs, err := h.Service.ListActive(r.Context())
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, techs)
}

func (h *TechnicianHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TechnicianHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input usecase.RegisterTechnicianInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	t, err := h.Service.Register(r.Context(), input)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TechnicianHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateTechnicianInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	t, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TechnicianHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
