package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"Vouch/internal/api/handlers"
	"Vouch/internal/auth"
)

type contextKey string

const (
	// IdentityKey holds the auth.Identity of the caller.
	IdentityKey contextKey = "identity"
	// AdminSubjectKey holds the admin username when authenticated by token.
	AdminSubjectKey contextKey = "admin_subject"
)

// AuthMiddleware gates routes on the browser session or an admin bearer token.
type AuthMiddleware struct {
	browser *auth.BrowserState
	admin   *auth.AdminAuthenticator
}

// NewAuthMiddleware creates the middleware. admin may be nil, in which case
// bearer tokens are never accepted.
func NewAuthMiddleware(browser *auth.BrowserState, admin *auth.AdminAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{browser: browser, admin: admin}
}

// LoadIdentity attaches the caller's identity to the context without
// enforcing anything.
func (m *AuthMiddleware) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.browser.Load(r)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), IdentityKey, id)))
	})
}

// RequireUser rejects callers that are not a signed-in registered user.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.browser.Load(r)
		if !id.IsAuthenticated || id.UserData == nil {
			handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Sign in by registering first")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), IdentityKey, id)))
	})
}

// RequireAdmin accepts an admin session cookie or an admin bearer token.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get("Authorization"); header != "" {
			if !strings.HasPrefix(header, "Bearer ") {
				handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Invalid Authorization header format. Expected: Bearer <token>")
				return
			}
			if m.admin == nil {
				handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Admin tokens are not enabled")
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			subject, err := m.admin.VerifyToken(token)
			if err != nil {
				log.Printf("[AUTH_FAILURE] type=admin_token ip=%s method=%s path=%s error=%v",
					r.RemoteAddr, r.Method, r.URL.Path, err)
				handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, auth.Identity{IsAdmin: true})
			ctx = context.WithValue(ctx, AdminSubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		id := m.browser.Load(r)
		if !id.IsAdmin {
			handlers.WriteError(w, http.StatusForbidden, "AdminRequired", "Admin login required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), IdentityKey, id)))
	})
}

// GetIdentity returns the identity attached by this middleware.
func GetIdentity(r *http.Request) auth.Identity {
	id, _ := r.Context().Value(IdentityKey).(auth.Identity)
	return id
}
