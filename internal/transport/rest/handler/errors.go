package handler

import (
	"errors"
	"net/http"

	"cuestionarios/internal/client"
	"cuestionarios/internal/engine"
	"cuestionarios/internal/service"
	"cuestionarios/internal/syncer"
)

// incompleteResponse is the 409 body of a blocked finalization
type incompleteResponse struct {
	Error   string           `json:"error"`
	Missing []engine.Missing `json:"faltantes"`
}

// writeServiceError maps service and engine errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	var incomplete *engine.IncompleteError
	if errors.As(err, &incomplete) {
		writeJSON(w, http.StatusConflict, incompleteResponse{Error: incomplete.Error(), Missing: incomplete.Missing})
		return
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		writeError(w, http.StatusBadGateway, apiErr.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, client.ErrNotFound),
		errors.Is(err, syncer.ErrUnknownQuestion):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidRecord),
		errors.Is(err, service.ErrInvalidCatalog),
		errors.Is(err, engine.ErrUnknownQuestionType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrFinalized),
		errors.Is(err, syncer.ErrReadOnly):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, client.ErrRateLimited):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
