package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/geoquest/internal/games"
)

func handleCreateGame(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.JudgeID == "" {
			writeError(w, http.StatusBadRequest, "judgeId is required")
			return
		}

		g, err := svc.Create(r.Context(), req.JudgeID, req.Name)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toGame(g))
	}
}

func handleGetGame(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := svc.Get(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toGame(g))
	}
}

func handleJudgeGames(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gs, err := svc.ListByJudge(r.Context(), chi.URLParam(r, "judgeID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toGames(gs))
	}
}

func handleJudgeActiveGame(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := svc.ActiveForJudge(r.Context(), chi.URLParam(r, "judgeID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toGame(g))
	}
}

func handleAnyActiveGame(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := svc.AnyActive(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toGame(g))
	}
}

func handleUpdateGameMeta(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GameMetaRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := svc.UpdateMeta(r.Context(), chi.URLParam(r, "gameID"), req.domain()); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

// gameCommand wraps the lifecycle transitions that take only a game id.
func gameCommand(logger *slog.Logger, fn func(r *http.Request, gameID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r, chi.URLParam(r, "gameID")); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

func handleActivateGame(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return gameCommand(logger, func(r *http.Request, id string) error { return svc.Activate(r.Context(), id) })
}

func handleDeactivateGame(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return gameCommand(logger, func(r *http.Request, id string) error { return svc.Deactivate(r.Context(), id) })
}

func handleSubmitGame(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return gameCommand(logger, func(r *http.Request, id string) error { return svc.SubmitForReview(r.Context(), id) })
}

func handleDeleteGame(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return gameCommand(logger, func(r *http.Request, id string) error { return svc.Delete(r.Context(), id) })
}

func handlePublishedGames(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ls, err := svc.ListPublished(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toListings(ls))
	}
}
