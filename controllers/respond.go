package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"beyondrounds_server/services"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeServiceError maps service sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, services.ErrNotParticipant):
		http.Error(w, "Not a participant", http.StatusForbidden)
	case errors.Is(err, services.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrDuplicateFeedback):
		http.Error(w, "Feedback already submitted", http.StatusConflict)
	case errors.Is(err, services.ErrMatchResolved):
		http.Error(w, "Match already resolved", http.StatusConflict)
	case errors.Is(err, services.ErrEpochInProgress):
		http.Error(w, "Match run already in progress", http.StatusConflict)
	case errors.Is(err, services.ErrConditionFailed):
		http.Error(w, "Conflicting write", http.StatusConflict)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
