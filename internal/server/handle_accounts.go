package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/geoquest/internal/accounts"
)

func handleRegister(svc *accounts.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		acc, err := svc.Register(r.Context(), accountRole(r), req.domain())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAccount(acc))
	}
}

// handleLogin answers 200 for mismatched credentials too; the body says
// whether the login succeeded.
func handleLogin(svc *accounts.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := svc.Login(r.Context(), accountRole(r), req.PublicNick, req.PasswordHash)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toLogin(res))
	}
}

func handleAccountByDevice(svc *accounts.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc, err := svc.GetByDevice(r.Context(), accountRole(r), chi.URLParam(r, "deviceID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toAccount(acc))
	}
}
