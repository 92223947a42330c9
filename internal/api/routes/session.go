package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Vouch/internal/api/handlers/account"
)

// RegisterSessionRoutes registers the wallet session endpoints.
// checkOrigin guards the websocket upgrade; nil accepts same-origin only.
func RegisterSessionRoutes(r chi.Router, sessions account.SessionManager, checkOrigin func(*http.Request) bool) {
	h := account.NewSessionHandler(sessions, checkOrigin)

	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", h.HandleStatus)
		r.Post("/connect", h.HandleConnect)
		r.Post("/disconnect", h.HandleDisconnect)
		r.Get("/events", h.HandleEvents)
	})
}
