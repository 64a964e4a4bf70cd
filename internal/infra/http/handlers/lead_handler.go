package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xavierca1/field-dispatch/internal/entity"
	"github.com/xavierca1/field-dispatch/internal/usecase"
)

type LeadService interface {
	Capture(ctx context.Context, input usecase.CaptureLeadInput) (*entity.Lead, error)
	List(ctx context.Context, statuses []string, limit int) ([]*entity.Lead, error)
	UpdateStatus(ctx context.Context, id, status string) (*entity.Lead, error)
}

type LeadHandler struct {
	Service LeadService
	Logger  *zap.Logger
}

func NewLeadHandler(service LeadService, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{Service: service, Logger: logger}
}

type CaptureLeadResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

// Capture is the public contact form. Rate limiting happens in middleware.
func (h *LeadHandler) Capture(w http.ResponseWriter, r *http.Request) {
	var input usecase.CaptureLeadInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	lead, err := h.Service.Capture(r.Context(), input)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, CaptureLeadResponse{Success: true, ID: lead.ID})
}

// List takes ?status=new,contacted and ?limit=.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	var statuses []string
	for _, raw := range r.URL.Query()["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, s)
			}
		}
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErrorResponse(w, http.StatusBadRequest, usecase.CodeValidation, "limit must be a positive integer")
			return
		}
		limit = n
	}

	leads, err := h.Service.List(r.Context(), statuses, limit)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (h *LeadHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	lead, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), input.Status)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}
