package web

import (
	"bytes"
	"context"
	"math/big"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"Vouch/internal/auth"
	"Vouch/internal/core/registration"
	"Vouch/internal/core/registry"
	"Vouch/internal/core/session"
	"Vouch/internal/core/treasury"
	"Vouch/internal/core/users"
)

type stubRegistration struct {
	result *registration.Result
	err    error
}

func (s *stubRegistration) Register(ctx context.Context, req registration.Request) (*registration.Result, error) {
	return s.result, s.err
}

func (s *stubRegistration) Fee() *big.Int { return big.NewInt(10_000_000_000_000_000) }

type stubUsers struct {
	users.UserService
	dids    []string
	details map[string]*users.UserDetails
}

func (s *stubUsers) GetCachedUser(ctx context.Context, did string) (*users.LocalUserRecord, error) {
	return nil, users.ErrUserNotFound
}

func (s *stubUsers) ListRegisteredDIDs(ctx context.Context) ([]string, error) {
	return s.dids, nil
}

func (s *stubUsers) GetUserDetails(ctx context.Context, did string) (*users.UserDetails, error) {
	if d, ok := s.details[did]; ok {
		return d, nil
	}
	return nil, registry.ErrUserNotRegistered
}

type stubTreasury struct {
	treasury.Service
}

func (stubTreasury) NetworkBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.RequireFromString("3.5"), nil
}

func (stubTreasury) DepositHistory(ctx context.Context, did string) ([]treasury.Deposit, error) {
	return nil, nil
}

type stubSessions struct{}

func (stubSessions) State() session.State { return session.State{} }

type pages struct {
	h       *Handlers
	browser *auth.BrowserState
	reg     *stubRegistration
	users   *stubUsers
}

func newPages(t *testing.T) *pages {
	t.Helper()
	templates, err := NewTemplates()
	require.NoError(t, err)
	browser, err := auth.NewBrowserState("0123456789abcdef0123456789abcdef", false)
	require.NoError(t, err)
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	key, err := auth.GenerateSigningKey()
	require.NoError(t, err)
	admin, err := auth.NewAdminAuthenticator("root", string(hash), key)
	require.NoError(t, err)

	p := &pages{browser: browser, reg: &stubRegistration{}, users: &stubUsers{details: map[string]*users.UserDetails{}}}
	p.h = NewHandlers(templates, Deps{
		Browser:      browser,
		Admin:        admin,
		Registration: p.reg,
		Users:        p.users,
		Treasury:     stubTreasury{},
		Sessions:     stubSessions{},
	})
	return p
}

func withCookies(r *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func (p *pages) userCookies(t *testing.T) []*http.Cookie {
	w := httptest.NewRecorder()
	rec := &users.LocalUserRecord{FirstName: "Ada", LastName: "Lovelace", DIDID: "did:key:zAda", UserInfoCID: "p", FileHash: "d"}
	require.NoError(t, p.browser.SignIn(w, httptest.NewRequest(http.MethodGet, "/", nil), "Ada", rec))
	return w.Result().Cookies()
}

func (p *pages) adminCookies(t *testing.T) []*http.Cookie {
	w := httptest.NewRecorder()
	require.NoError(t, p.browser.LoginAdmin(w, httptest.NewRequest(http.MethodGet, "/", nil)))
	return w.Result().Cookies()
}

func TestPageRedirects(t *testing.T) {
	p := newPages(t)
	user := p.userCookies(t)
	admin := p.adminCookies(t)

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		path     string
		cookies  []*http.Cookie
		location string
	}{
		{name: "dashboard anonymous", handler: p.h.DashboardHandler, path: "/", location: "/register"},
		{name: "dashboard admin", handler: p.h.DashboardHandler, path: "/", cookies: admin, location: "/admin"},
		{name: "register signed in", handler: p.h.RegisterPageHandler, path: "/register", cookies: user, location: "/"},
		{name: "admin anonymous", handler: p.h.AdminPageHandler, path: "/admin", location: "/loginAdmin"},
		{name: "admin as user", handler: p.h.AdminPageHandler, path: "/admin", cookies: user, location: "/loginAdmin"},
		{name: "login already admin", handler: p.h.LoginAdminPageHandler, path: "/loginAdmin", cookies: admin, location: "/admin"},
		{name: "logout user", handler: p.h.LogoutHandler, path: "/logout", cookies: user, location: "/register"},
		{name: "logout admin", handler: p.h.LogoutHandler, path: "/logout", cookies: admin, location: "/loginAdmin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, withCookies(httptest.NewRequest(http.MethodGet, tt.path, nil), tt.cookies))
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}
}

func TestDashboardHandler_SignedIn(t *testing.T) {
	p := newPages(t)
	w := httptest.NewRecorder()
	p.h.DashboardHandler(w, withCookies(httptest.NewRequest(http.MethodGet, "/", nil), p.userCookies(t)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ada Lovelace")
	assert.Contains(t, w.Body.String(), "No deposits yet.")
}

func TestRegisterPageHandler_ShowsFee(t *testing.T) {
	p := newPages(t)
	w := httptest.NewRecorder()
	p.h.RegisterPageHandler(w, httptest.NewRequest(http.MethodGet, "/register", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "0.01 ETH")
}

func registerForm(t *testing.T, withFile bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("firstName", "Ada"))
	require.NoError(t, mw.WriteField("lastName", "Lovelace"))
	require.NoError(t, mw.WriteField("passportNo", "X1"))
	require.NoError(t, mw.WriteField("birthday", "1990-01-01"))
	if withFile {
		fw, err := mw.CreateFormFile("docFile", "passport.pdf")
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF-1.4 scan"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/register", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestRegisterSubmitHandler(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		p := newPages(t)
		p.reg.result = &registration.Result{Record: &users.LocalUserRecord{FirstName: "Ada", DIDID: "did:key:zAda"}}

		w := httptest.NewRecorder()
		p.h.RegisterSubmitHandler(w, registerForm(t, true))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))

		id := p.browser.Load(withCookies(httptest.NewRequest(http.MethodGet, "/", nil), w.Result().Cookies()))
		assert.True(t, id.IsAuthenticated)
		assert.Equal(t, "Ada", id.Username)
	})

	t.Run("reverted", func(t *testing.T) {
		p := newPages(t)
		p.reg.err = &registration.AttemptError{
			Step:    registration.StepSubmittingTransaction,
			History: []registration.Step{registration.StepIdle, registration.StepFailed},
			Err:     &registry.RevertError{Reason: "Already registered"},
		}

		w := httptest.NewRecorder()
		p.h.RegisterSubmitHandler(w, registerForm(t, true))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Already registered")
		assert.Contains(t, w.Body.String(), `value="Lovelace"`, "form keeps what was typed")
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("missing document", func(t *testing.T) {
		p := newPages(t)
		w := httptest.NewRecorder()
		p.h.RegisterSubmitHandler(w, registerForm(t, false))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "a document file is required")
	})
}

func TestLoginAdminSubmitHandler(t *testing.T) {
	p := newPages(t)

	form := func(user, pass string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/loginAdmin", strings.NewReader(url.Values{"username": {user}, "password": {pass}}.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return r
	}

	w := httptest.NewRecorder()
	p.h.LoginAdminSubmitHandler(w, form("root", "hunter2"))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, p.browser.Load(withCookies(httptest.NewRequest(http.MethodGet, "/", nil), w.Result().Cookies())).IsAdmin)

	w = httptest.NewRecorder()
	p.h.LoginAdminSubmitHandler(w, form("root", "nope"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")
	assert.Contains(t, w.Body.String(), `value="root"`)
}

func TestAdminPageHandler(t *testing.T) {
	p := newPages(t)
	p.users.dids = []string{"did:key:zOk", "did:key:zGone"}
	p.users.details["did:key:zOk"] = &users.UserDetails{
		DID: "did:key:zOk", DepositAmount: big.NewInt(20_000_000_000_000_000), Wallet: "0xwallet",
	}

	w := httptest.NewRecorder()
	p.h.AdminPageHandler(w, withCookies(httptest.NewRequest(http.MethodGet, "/admin", nil), p.adminCookies(t)))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "3.5 ETH")
	assert.Contains(t, body, "0.02")
	assert.Contains(t, body, "0xwallet")
	assert.Contains(t, body, "user not registered")
}
