package routes

import (
	"github.com/go-chi/chi/v5"

	"Vouch/internal/web"
)

// RegisterWebRoutes registers the server-rendered pages.
func RegisterWebRoutes(r chi.Router, deps web.Deps) {
	templates, err := web.NewTemplates()
	if err != nil {
		panic("failed to load web templates: " + err.Error())
	}

	handlers := web.NewHandlers(templates, deps)

	r.Get("/", handlers.DashboardHandler)

	r.Get("/register", handlers.RegisterPageHandler)
	r.Post("/register", handlers.RegisterSubmitHandler)

	r.Get("/admin", handlers.AdminPageHandler)

	r.Get("/loginAdmin", handlers.LoginAdminPageHandler)
	r.Post("/loginAdmin", handlers.LoginAdminSubmitHandler)

	r.Get("/logout", handlers.LogoutHandler)
}
