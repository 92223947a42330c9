package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"Vouch/internal/auth"
	"Vouch/internal/core/users"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAuth(t *testing.T) (*AuthMiddleware, *auth.BrowserState, *auth.AdminAuthenticator) {
	t.Helper()
	browser, err := auth.NewBrowserState(testSecret, false)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	key, err := auth.GenerateSigningKey()
	require.NoError(t, err)
	admin, err := auth.NewAdminAuthenticator("root", string(hash), key)
	require.NoError(t, err)

	return NewAuthMiddleware(browser, admin), browser, admin
}

func cookiesFrom(t *testing.T, fn func(w http.ResponseWriter, r *http.Request) error) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	require.NoError(t, fn(w, httptest.NewRequest(http.MethodGet, "/", nil)))
	return w.Result().Cookies()
}

func serve(h http.Handler, cookies []*http.Cookie, header string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRequireUser(t *testing.T) {
	m, browser, _ := newAuth(t)

	var seen auth.Identity
	h := m.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetIdentity(r)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("anonymous", func(t *testing.T) {
		w := serve(h, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "AuthRequired")
	})

	t.Run("signed in", func(t *testing.T) {
		rec := &users.LocalUserRecord{FirstName: "Ada", DIDID: "did:key:z1"}
		cookies := cookiesFrom(t, func(w http.ResponseWriter, r *http.Request) error {
			return browser.SignIn(w, r, "Ada", rec)
		})

		w := serve(h, cookies, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Ada", seen.Username)
		require.NotNil(t, seen.UserData)
		assert.Equal(t, "did:key:z1", seen.UserData.DIDID)
	})

	t.Run("admin is not a user", func(t *testing.T) {
		cookies := cookiesFrom(t, browser.LoginAdmin)
		w := serve(h, cookies, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	m, browser, admin := newAuth(t)

	var subject interface{}
	h := m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = r.Context().Value(AdminSubjectKey)
		assert.True(t, GetIdentity(r).IsAdmin)
		w.WriteHeader(http.StatusOK)
	}))

	token, _, err := admin.IssueToken()
	require.NoError(t, err)

	t.Run("admin cookie", func(t *testing.T) {
		w := serve(h, cookiesFrom(t, browser.LoginAdmin), "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bearer token", func(t *testing.T) {
		subject = nil
		w := serve(h, nil, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "root", subject)
	})

	t.Run("bad token", func(t *testing.T) {
		w := serve(h, nil, "Bearer not-a-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		w := serve(h, nil, "Basic cm9vdDpodW50ZXIy")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("user cookie", func(t *testing.T) {
		cookies := cookiesFrom(t, func(w http.ResponseWriter, r *http.Request) error {
			return browser.SignIn(w, r, "Ada", &users.LocalUserRecord{DIDID: "did:key:z1"})
		})
		w := serve(h, cookies, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := serve(h, nil, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "AdminRequired")
	})
}

func TestLoadIdentity_Anonymous(t *testing.T) {
	m, _, _ := newAuth(t)
	called := false
	h := m.LoadIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, auth.Identity{}, GetIdentity(r))
	}))
	serve(h, nil, "")
	assert.True(t, called)
}
