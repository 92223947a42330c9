package routes

import (
	"github.com/go-chi/chi/v5"

	"Vouch/internal/api/handlers/dashboard"
	"Vouch/internal/api/middleware"
	"Vouch/internal/core/treasury"
	"Vouch/internal/core/users"
)

// RegisterDashboardRoutes registers the signed-in user's endpoints.
func RegisterDashboardRoutes(r chi.Router, userService users.UserService, treasuryService treasury.Service, authMiddleware *middleware.AuthMiddleware) {
	h := dashboard.NewDashboardHandler(userService, treasuryService)

	r.Route("/api/me", func(r chi.Router) {
		r.Use(authMiddleware.RequireUser)
		r.Get("/", h.HandleMe)
		r.Post("/deposit", h.HandleDeposit)
		r.Get("/deposits", h.HandleHistory)
	})
}
