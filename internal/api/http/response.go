package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"gatekeeper-backend/internal/domain"
	"gatekeeper-backend/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service errors. Anything that is not a known input
// or lookup error is a storage fault the caller may retry.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "application not found")
	case errors.Is(err, domain.ErrOpenApplication), errors.Is(err, domain.ErrNotSubmittable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusServiceUnavailable, "storage unavailable, please retry")
	}
}

func claimStatus(outcome domain.ClaimOutcome) int {
	switch outcome {
	case domain.ClaimOK:
		return http.StatusOK
	case domain.ClaimAppNotFound:
		return http.StatusNotFound
	}
	return http.StatusConflict
}

func decisionStatus(kind domain.DecisionKind) int {
	switch kind {
	case domain.DecisionOK, domain.DecisionAlready:
		return http.StatusOK
	case domain.DecisionNotFound:
		return http.StatusNotFound
	}
	return http.StatusConflict
}

func unblockStatus(outcome domain.UnblockOutcome) int {
	switch outcome {
	case domain.UnblockOK:
		return http.StatusOK
	case domain.UnblockNotFound:
		return http.StatusNotFound
	}
	return http.StatusConflict
}
