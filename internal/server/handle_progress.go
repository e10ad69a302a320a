package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/geoquest/internal/geo"
	"github.com/playperu/geoquest/internal/progress"
)

func playerParams(r *http.Request) (gameID, playerID string) {
	return chi.URLParam(r, "gameID"), chi.URLParam(r, "playerID")
}

func handleStart(engine *progress.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var pos geo.Point
		if err := readJSON(r, &pos); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		gameID, playerID := playerParams(r)

		p, err := engine.Start(r.Context(), gameID, playerID, pos)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toProgress(p))
	}
}

func handlePosition(engine *progress.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var pos geo.Point
		if err := readJSON(r, &pos); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		gameID, playerID := playerParams(r)

		if err := engine.ReportPosition(r.Context(), gameID, playerID, pos); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

func handleEvaluate(engine *progress.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var pos geo.Point
		if err := readJSON(r, &pos); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		gameID, playerID := playerParams(r)

		ev, err := engine.Evaluate(r.Context(), gameID, playerID, pos)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toEvaluation(ev))
	}
}

func handleFound(engine *progress.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FoundRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.PointID == "" {
			writeError(w, http.StatusBadRequest, "pointId is required")
			return
		}
		gameID, playerID := playerParams(r)

		n, err := engine.MarkFound(r.Context(), gameID, playerID, req.PointID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, FoundResponse{FoundCount: n})
	}
}

func handleGetProgress(engine *progress.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, playerID := playerParams(r)
		p, err := engine.Get(r.Context(), gameID, playerID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toProgress(p))
	}
}

func handleVisiblePoints(engine *progress.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, playerID := playerParams(r)
		ps, err := engine.VisiblePoints(r.Context(), gameID, playerID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toPoints(ps))
	}
}

func handleSummaries(engine *progress.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := engine.Summaries(r.Context(), chi.URLParam(r, "playerID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toSummaries(s))
	}
}
