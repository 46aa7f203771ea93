package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/repository"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("writeJSON encode: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeRepoError maps repository sentinel errors to HTTP statuses and falls
// back to 500 with the given message for anything unexpected.
func writeRepoError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, fallback)
	case errors.Is(err, repository.ErrForbidden):
		writeError(w, http.StatusForbidden, fallback)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, fallback)
	default:
		logger.Errorf("handler: %s: %v", fallback, err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
