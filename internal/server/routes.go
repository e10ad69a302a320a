package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/geoquest/internal/accounts"
)

func addRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("GeoQuest API", "/openapi.json", "/docs"))

	r.Route("/api", func(r chi.Router) {
		// Games.
		r.Post("/games", handleCreateGame(d.Games, logger))
		r.Get("/games/active", handleAnyActiveGame(d.Games, logger))
		r.Get("/games/{gameID}", handleGetGame(d.Games, logger))
		r.Patch("/games/{gameID}", handleUpdateGameMeta(d.Games, logger))
		r.Delete("/games/{gameID}", handleDeleteGame(d.Games, logger))
		r.Post("/games/{gameID}/activate", handleActivateGame(d.Games, logger))
		r.Post("/games/{gameID}/deactivate", handleDeactivateGame(d.Games, logger))
		r.Post("/games/{gameID}/submit", handleSubmitGame(d.Games, logger))
		r.Get("/games/{gameID}/events", handleEvents(d.Broker))
		r.Get("/store/games", handlePublishedGames(d.Games, logger))

		// Control points.
		r.Post("/games/{gameID}/points", handleCreatePoint(d.Points, logger))
		r.Get("/games/{gameID}/points", handleListPoints(d.Points, logger))
		r.Get("/games/{gameID}/points/count", handleCountPoints(d.Points, logger))
		r.Post("/games/{gameID}/points/{pointID}/start", handleSetStartPoint(d.Points, logger))
		r.Put("/points/{pointID}/content", handleUpdatePointContent(d.Points, logger))
		r.Put("/points/{pointID}/chain", handleUpdatePointChain(d.Points, logger))
		r.Post("/points/{pointID}/activate", handleActivatePoint(d.Points, logger))
		r.Delete("/points/{pointID}", handleDeletePoint(d.Points, logger))
		r.Get("/points/{pointID}/qr.png", handlePointQR(d.Points, logger))

		// Player progress.
		const player = "/games/{gameID}/players/{playerID}"
		r.Post(player+"/start", handleStart(d.Progress, logger))
		r.Post(player+"/position", handlePosition(d.Progress, logger))
		r.Post(player+"/evaluate", handleEvaluate(d.Progress, logger))
		r.Post(player+"/found", handleFound(d.Progress, logger))
		r.Get(player+"/progress", handleGetProgress(d.Progress, logger))
		r.Get(player+"/points", handleVisiblePoints(d.Progress, logger))
		r.Get(player+"/ws", handlePositionStream(d.Progress, d.Broker, logger))

		// Accounts. Static segments win over the id params in chi.
		r.Route("/judges", func(r chi.Router) {
			r.Use(withRole("judges"))
			addAccountRoutes(r, d.Accounts, logger)
			r.Get("/{judgeID}/games", handleJudgeGames(d.Games, logger))
			r.Get("/{judgeID}/games/active", handleJudgeActiveGame(d.Games, logger))
		})
		r.Route("/players", func(r chi.Router) {
			r.Use(withRole("players"))
			addAccountRoutes(r, d.Accounts, logger)
			r.Get("/{playerID}/summaries", handleSummaries(d.Progress, logger))
		})

		// Moderation. Every route checks X-Admin-Key in the service layer.
		r.Route("/admin", func(r chi.Router) {
			r.Get("/{role}", handleAdminListAccounts(d.Accounts, logger))
			r.Put("/{role}/{id}/status", handleAdminSetAccountStatus(d.Accounts, logger))
			r.Get("/games", handleAdminListGames(d.Games, logger))
			r.Patch("/games/{gameID}", handleAdminUpdateGame(d.Games, logger))
			r.Put("/games/{gameID}/review", handleAdminReview(d.Games, logger))
			r.Put("/games/{gameID}/published", handleAdminPublish(d.Games, logger))
			r.Get("/games/{gameID}/points", handleAdminListPoints(d.Points, logger))
			r.Post("/games/{gameID}/points", handleAdminCreatePoint(d.Points, logger))
			r.Get("/games/{gameID}/live", handleAdminLive(d.Progress, logger))
			r.Patch("/points/{pointID}", handleAdminUpdatePoint(d.Points, logger))
			r.Delete("/points/{pointID}", handleAdminDeletePoint(d.Points, logger))
		})
	})

	if d.AdminUIDir != "" {
		if info, err := os.Stat(d.AdminUIDir); err == nil && info.IsDir() {
			logger.Info("serving admin console", "dir", d.AdminUIDir)
			r.NotFound(handleSPA(d.AdminUIDir))
		}
	}
}

func addAccountRoutes(r chi.Router, svc *accounts.Service, logger *slog.Logger) {
	r.Post("/register", handleRegister(svc, logger))
	r.Post("/login", handleLogin(svc, logger))
	r.Get("/device/{deviceID}", handleAccountByDevice(svc, logger))
}
