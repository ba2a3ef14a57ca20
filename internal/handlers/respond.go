package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Varun5711/shortbox/internal/models"
	"github.com/Varun5711/shortbox/internal/service"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, models.ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// respondServiceError maps creation failures onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_failed",
			Message: verr.Reason,
			Field:   verr.Field,
		})
	case errors.Is(err, service.ErrValidation):
		respondError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, service.ErrDuplicateCustomCode):
		respondError(w, http.StatusConflict, "duplicate_short_code", service.ErrDuplicateCustomCode.Error())
	case errors.Is(err, service.ErrAllocationExhausted):
		w.Header().Set("Retry-After", "1")
		respondError(w, http.StatusServiceUnavailable, "allocation_exhausted", service.ErrAllocationExhausted.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create entry")
	}
}
