package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/geoquest/internal/geoquest"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeServiceError maps domain sentinels to HTTP statuses. Anything
// unrecognised is logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, geoquest.ErrForbidden):
		writeError(w, http.StatusForbidden, geoquest.ErrForbidden.Error())
	case errors.Is(err, geoquest.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, geoquest.ErrNicknameTaken):
		writeError(w, http.StatusConflict, geoquest.ErrNicknameTaken.Error())
	case errors.Is(err, geoquest.ErrConflict):
		writeError(w, http.StatusConflict, "concurrent update, retry")
	case errors.Is(err, geoquest.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
