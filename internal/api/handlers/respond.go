package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/pkg/logger"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func respondData(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// respondEngineError maps engine errors to status codes
func respondEngineError(w http.ResponseWriter, log *logger.Logger, err error, action string) {
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, "stock not found")
	case errors.Is(err, contracts.ErrInvalidArgument):
		log.WithError(err).Error(action + " rejected")
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.WithError(err).Error(action + " failed")
		respondError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}
