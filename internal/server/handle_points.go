package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/playperu/geoquest/internal/geoquest"
	"github.com/playperu/geoquest/internal/points"
)

func handleCreatePoint(svc *points.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePointRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		gameID := chi.URLParam(r, "gameID")
		var (
			p   geoquest.ControlPoint
			err error
		)
		if req.Origin != nil {
			p, err = svc.CreateNear(r.Context(), gameID, req.domain(), *req.Origin)
		} else {
			p, err = svc.Create(r.Context(), gameID, req.domain())
		}
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPoint(p))
	}
}

func handleListPoints(svc *points.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := svc.List(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toPoints(ps))
	}
}

func handleCountPoints(svc *points.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.Count(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, CountResponse{Count: n})
	}
}

func handleUpdatePointContent(svc *points.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ContentDTO
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := svc.UpdateContent(r.Context(), chi.URLParam(r, "pointID"), req.domain()); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

func handleUpdatePointChain(svc *points.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChainRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := svc.UpdateChain(r.Context(), chi.URLParam(r, "pointID"), req.NextPointID); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

func handleSetStartPoint(svc *points.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.SetStartSequential(r.Context(), chi.URLParam(r, "gameID"), chi.URLParam(r, "pointID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

func handleActivatePoint(svc *points.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Activate(r.Context(), chi.URLParam(r, "pointID")); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

func handleDeletePoint(svc *points.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "pointID")); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, acknowledged)
	}
}

const (
	qrDefaultSize = 256
	qrMinSize     = 64
	qrMaxSize     = 1024
)

// handlePointQR renders the point's QR payload as a PNG for printing. Points
// without a payload encode their id.
func handlePointQR(svc *points.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size := qrDefaultSize
		if raw := r.URL.Query().Get("size"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < qrMinSize || n > qrMaxSize {
				writeError(w, http.StatusBadRequest, "size must be between 64 and 1024")
				return
			}
			size = n
		}

		p, err := svc.Get(r.Context(), chi.URLParam(r, "pointID"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		content := p.Content.QR
		if content == "" {
			content = p.ID
		}

		png, err := qrcode.Encode(content, qrcode.Medium, size)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}
