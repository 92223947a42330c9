package routes

import (
	"github.com/go-chi/chi/v5"

	"Vouch/internal/api/handlers/admin"
	"Vouch/internal/api/middleware"
	"Vouch/internal/auth"
	"Vouch/internal/core/content"
	"Vouch/internal/core/treasury"
	"Vouch/internal/core/users"
)

// AdminDeps groups what the admin routes need.
type AdminDeps struct {
	Browser       *auth.BrowserState
	Authenticator *auth.AdminAuthenticator
	Users         users.UserService
	Content       content.Service
	Treasury      treasury.Service
}

// RegisterAdminRoutes registers the admin console API. Login and token
// exchange are public; everything else needs an admin cookie or bearer token.
func RegisterAdminRoutes(r chi.Router, deps AdminDeps, authMiddleware *middleware.AuthMiddleware) {
	h := admin.NewAdminHandler(deps.Browser, deps.Authenticator, deps.Users, deps.Content, deps.Treasury)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/token", h.HandleToken)
		r.Post("/logout", h.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAdmin)
			r.Get("/users", h.HandleListUsers)
			r.Get("/users/{did}", h.HandleUserDetails)
			r.Get("/users/{did}/document", h.HandleDocument)
			r.Get("/users/{did}/bundle", h.HandleBundle)
			r.Get("/balance", h.HandleBalance)
			r.Post("/withdraw", h.HandleWithdraw)
			r.Post("/sync", h.HandleSync)
		})
	})
}
