package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/geoquest/internal/accounts"
	"github.com/playperu/geoquest/internal/games"
	"github.com/playperu/geoquest/internal/geoquest"
	"github.com/playperu/geoquest/internal/points"
	"github.com/playperu/geoquest/internal/progress"
)

func handleAdminListAccounts(svc *accounts.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := geoquest.AccountStatus(r.URL.Query().Get("status"))
		list, err := svc.List(r.Context(), adminKey(r), accountRole(r), status)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		out := make([]AccountResponse, 0, len(list))
		for _, a := range list {
			out = append(out, toAccount(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminSetAccountStatus(svc *accounts.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StatusRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		err := svc.SetStatus(r.Context(), adminKey(r), accountRole(r), chi.URLParam(r, "id"), geoquest.AccountStatus(req.Status))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

// handleAdminListGames lists the review queue. Without ?status every game
// is returned.
func handleAdminListGames(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := geoquest.ReviewStatus(r.URL.Query().Get("status"))
		gs, err := svc.ListByReviewStatus(r.Context(), adminKey(r), status)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toGames(gs))
	}
}

func handleAdminUpdateGame(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GameMetaRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := svc.AdminUpdateMeta(r.Context(), adminKey(r), chi.URLParam(r, "gameID"), req.domain()); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

func handleAdminReview(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StatusRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		err := svc.SetReviewStatus(r.Context(), adminKey(r), chi.URLParam(r, "gameID"), geoquest.ReviewStatus(req.Status))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

func handleAdminPublish(svc *games.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PublishedRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := svc.SetPublished(r.Context(), adminKey(r), chi.URLParam(r, "gameID"), req.Published); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

func handleAdminListPoints(svc *points.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := svc.ListDetailed(r.Context(), adminKey(r), chi.URLParam(r, "gameID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toPoints(ps))
	}
}

func handleAdminCreatePoint(svc *points.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePointRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		p, err := svc.AdminCreate(r.Context(), adminKey(r), chi.URLParam(r, "gameID"), req.domain(), req.IsActive)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPoint(p))
	}
}

func handleAdminUpdatePoint(svc *points.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PointPatchRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		patch, err := req.domain()
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if err := svc.AdminUpdate(r.Context(), adminKey(r), chi.URLParam(r, "pointID"), patch); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

func handleAdminDeletePoint(svc *points.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.AdminDelete(r.Context(), adminKey(r), chi.URLParam(r, "pointID")); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

func handleAdminLive(engine *progress.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := engine.LiveSnapshot(r.Context(), adminKey(r), chi.URLParam(r, "gameID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toLive(snap))
	}
}
