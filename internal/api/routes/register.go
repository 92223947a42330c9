package routes

import (
	"github.com/go-chi/chi/v5"

	"Vouch/internal/api/handlers/register"
	"Vouch/internal/auth"
	"Vouch/internal/core/registration"
)

// RegisterRegistrationRoutes registers the registration form endpoint.
func RegisterRegistrationRoutes(r chi.Router, service registration.Service, browser *auth.BrowserState) {
	h := register.NewRegisterHandler(service, browser)

	r.Post("/api/register", h.HandleRegister)
}
