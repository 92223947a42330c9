// Package auth holds the browser-persisted sign-in state and admin
// credentials. A browser is either a signed-in user or an admin, never both.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"Vouch/internal/core/users"
)

// Session value keys. They mirror what the browser app kept in localStorage.
const (
	KeyIsAuthenticated = "isAuthenticated"
	KeyIsAdmin         = "isAdmin"
	KeyUsername        = "username"
	KeyUserData        = "userData"
)

const (
	// SessionName is the cookie name.
	SessionName = "vouch_session"

	// MinSessionSecretLength is the shortest accepted cookie secret.
	MinSessionSecretLength = 32

	sessionMaxAge = 30 * 24 * 60 * 60
)

// Identity is what the browser state says about the caller.
type Identity struct {
	IsAuthenticated bool
	IsAdmin         bool
	Username        string
	UserData        *users.LocalUserRecord
}

// BrowserState reads and writes the signed session cookie.
type BrowserState struct {
	store *sessions.CookieStore
}

// NewBrowserState creates the cookie store. secureCookies should be true
// whenever the server is reached over HTTPS.
func NewBrowserState(secret string, secureCookies bool) (*BrowserState, error) {
	if len(secret) < MinSessionSecretLength {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSessionSecretLength)
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	return &BrowserState{store: store}, nil
}

// Load returns the caller's identity. A missing or tampered cookie yields
// an anonymous identity.
func (b *BrowserState) Load(r *http.Request) Identity {
	sess, err := b.store.Get(r, SessionName)
	if err != nil {
		return Identity{}
	}

	var id Identity
	id.IsAuthenticated, _ = sess.Values[KeyIsAuthenticated].(bool)
	id.IsAdmin, _ = sess.Values[KeyIsAdmin].(bool)
	id.Username, _ = sess.Values[KeyUsername].(string)

	if raw, ok := sess.Values[KeyUserData].(string); ok && raw != "" {
		var rec users.LocalUserRecord
		if err := json.Unmarshal([]byte(raw), &rec); err == nil {
			id.UserData = &rec
		}
	}

	// Admin wins, matching how the browser app resolved a clobbered store.
	if id.IsAdmin {
		id.IsAuthenticated = false
		id.Username = ""
		id.UserData = nil
	}
	if id.IsAuthenticated && id.Username == "" {
		id.IsAuthenticated = false
	}
	return id
}

// SignIn clears the session and signs rec's owner in.
func (b *BrowserState) SignIn(w http.ResponseWriter, r *http.Request, username string, rec *users.LocalUserRecord) error {
	if username == "" {
		return errors.New("username is required")
	}

	sess := b.fresh(r)
	sess.Values[KeyIsAuthenticated] = true
	sess.Values[KeyUsername] = username
	if rec != nil {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode user data: %w", err)
		}
		sess.Values[KeyUserData] = string(data)
	}
	return sess.Save(r, w)
}

// LoginAdmin clears the session and marks the browser as admin.
func (b *BrowserState) LoginAdmin(w http.ResponseWriter, r *http.Request) error {
	sess := b.fresh(r)
	sess.Values[KeyIsAdmin] = true
	return sess.Save(r, w)
}

// SignOut removes every key and expires the cookie.
func (b *BrowserState) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess := b.fresh(r)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// fresh returns the session with every value cleared. A cookie that fails
// to decode is replaced.
func (b *BrowserState) fresh(r *http.Request) *sessions.Session {
	sess, err := b.store.Get(r, SessionName)
	if err != nil || sess == nil {
		sess = sessions.NewSession(b.store, SessionName)
		opts := *b.store.Options
		sess.Options = &opts
		sess.IsNew = true
	}
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	opts := *sess.Options
	sess.Options = &opts
	return sess
}
