package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xavierca1/field-dispatch/internal/usecase"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type capacityErrorResponse struct {
	errorResponse
	TechnicianID  string `json:"technician_id"`
	Date          string `json:"date"`
	MaxJobsPerDay int    `json:"max_jobs_per_day"`
	Current       int    `json:"current"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeDomainError maps usecase errors onto HTTP. Anything that is not a
// domain error is logged and reported as a bare 500.
func writeDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		validationErr *usecase.ValidationError
		notFoundErr   *usecase.NotFoundError
		capacityErr   *usecase.CapacityExceededError
		transitionErr *usecase.InvalidTransitionError
	)

	switch {
	case errors.As(err, &validationErr):
		writeErrorResponse(w, http.StatusBadRequest, validationErr.Code(), validationErr.Error())
	case errors.As(err, &notFoundErr):
		writeErrorResponse(w, http.StatusNotFound, notFoundErr.Code(), notFoundErr.Error())
	case errors.As(err, &capacityErr):
		writeJSON(w, http.StatusConflict, capacityErrorResponse{
			errorResponse: errorResponse{Error: capacityErr.Code(), Message: capacityErr.Error()},
			TechnicianID:  capacityErr.TechnicianID,
			Date:          capacityErr.Date,
			MaxJobsPerDay: capacityErr.Max,
			Current:       capacityErr.Current,
		})
	case errors.As(err, &transitionErr):
		writeErrorResponse(w, http.StatusConflict, transitionErr.Code(), transitionErr.Error())
	default:
		if logger != nil {
			logger.Error("request failed", zap.Error(err))
		}
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected error")
	}
}

// decodeJSON rejects unknown fields so that writes stay on the allow-list.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
