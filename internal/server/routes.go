package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/festquest/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Get("/docs", handleSwaggerUI())
	r.Get("/docs/*", handleSwaggerUI())
	r.Mount("/healthz", health.NewHandler(logger, d.Checks).Routes())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", handleRegister(logger, d.Accounts, d.Tokens))
		r.Post("/auth/login", handleLogin(logger, d.Accounts, d.Progress, d.Tokens))

		r.Get("/activities", handleListActivities(logger, d.DB))
		r.Get("/activities/{id}", handleGetActivity(logger, d.DB))
		r.Get("/badges", handleListBadges(logger, d.DB))

		// SSE authenticates through the token query parameter.
		r.Get("/events", handleEvents(d.Broker, d.Tokens))

		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(d.Tokens))

			r.Get("/users/me", handleMe(logger, d.Accounts, d.Progress))
			r.Get("/users/me/family", handleMyFamily(logger, d.Accounts, d.Progress))
			r.Post("/users/me/family", handleJoinFamily(logger, d.Accounts))
			r.Post("/families", handleCreateFamily(logger, d.Accounts))
			r.Get("/badges/earned", handleEarnedBadges(logger, d.DB))

			r.Get("/quests", handleQuestBoard(logger, d.Progress))
			r.Get("/quests/progress", handleQuestProgress(logger, d.Progress))
			r.Post("/quests/complete", handleComplete(logger, d.Quests))

			r.Get("/leaderboard/global", handleGlobalLeaderboard(logger, d.Progress, d.LeaderboardLimit))
			r.Get("/leaderboard/family", handleFamilyLeaderboard(logger, d.Accounts, d.Progress, d.LeaderboardLimit))
			r.Get("/leaderboard/family/{familyID}", handleFamilyLeaderboardByID(logger, d.Accounts, d.Progress, d.LeaderboardLimit))
		})
	})
}
