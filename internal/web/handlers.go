package web

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"

	"Vouch/internal/api/handlers"
	"Vouch/internal/api/handlers/register"
	"Vouch/internal/auth"
	"Vouch/internal/core/registration"
	"Vouch/internal/core/session"
	"Vouch/internal/core/treasury"
	"Vouch/internal/core/users"
)

// SessionView is the wallet session as the pages need it.
type SessionView interface {
	State() session.State
}

// Handlers serves the web pages.
type Handlers struct {
	templates    *Templates
	browser      *auth.BrowserState
	admin        *auth.AdminAuthenticator
	registration registration.Service
	users        users.UserService
	treasury     treasury.Service
	sessions     SessionView
}

// Deps groups the services the pages read from.
type Deps struct {
	Browser      *auth.BrowserState
	Admin        *auth.AdminAuthenticator
	Registration registration.Service
	Users        users.UserService
	Treasury     treasury.Service
	Sessions     SessionView
}

// NewHandlers creates a new Handlers instance with the provided dependencies.
func NewHandlers(templates *Templates, deps Deps) *Handlers {
	return &Handlers{
		templates:    templates,
		browser:      deps.Browser,
		admin:        deps.Admin,
		registration: deps.Registration,
		users:        deps.Users,
		treasury:     deps.Treasury,
		sessions:     deps.Sessions,
	}
}

// WalletData is the connection banner shown on every page.
type WalletData struct {
	Connected bool
	Account   string
	Balance   string
}

// RegisterPageData holds data for the registration page.
type RegisterPageData struct {
	Wallet  WalletData
	Fee     string
	Form    map[string]string
	Error   string
	Step    string
	History []registration.Step
}

// DashboardPageData holds data for the dashboard.
type DashboardPageData struct {
	Wallet       WalletData
	Username     string
	User         *users.LocalUserRecord
	Deposits     []treasury.Deposit
	HistoryError string
}

// AdminUserRow is one registered user in the admin table.
type AdminUserRow struct {
	DID     string
	Details *users.UserDetails
	Deposit string
	Error   string
}

// AdminPageData holds data for the admin console.
type AdminPageData struct {
	Wallet  WalletData
	Balance string
	Users   []AdminUserRow
	Error   string
}

// LoginPageData holds data for the admin login page.
type LoginPageData struct {
	Username string
	Error    string
}

// DashboardHandler renders the signed-in user's dashboard.
// GET /
func (h *Handlers) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	id := h.browser.Load(r)
	if id.IsAdmin {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	if !id.IsAuthenticated || id.UserData == nil {
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}

	data := DashboardPageData{
		Wallet:   h.wallet(),
		Username: id.Username,
		User:     id.UserData,
	}
	if cached, err := h.users.GetCachedUser(r.Context(), id.UserData.DIDID); err == nil {
		data.User = cached
	}

	deposits, err := h.treasury.DepositHistory(r.Context(), data.User.DIDID)
	if err != nil {
		_, _, data.HistoryError = handlers.ClassifyError(err)
		slog.Warn("dashboard: failed to load deposit history", "did", data.User.DIDID, "error", err)
	}
	data.Deposits = deposits

	h.render(w, http.StatusOK, "dashboard.html", data)
}

// RegisterPageHandler renders the registration form.
// GET /register
func (h *Handlers) RegisterPageHandler(w http.ResponseWriter, r *http.Request) {
	if id := h.browser.Load(r); id.IsAuthenticated {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, http.StatusOK, "register.html", h.registerData(nil))
}

// RegisterSubmitHandler runs a registration from the form and signs the
// browser in once the transaction is confirmed.
// POST /register
func (h *Handlers) RegisterSubmitHandler(w http.ResponseWriter, r *http.Request) {
	req, err := register.ParseRequest(w, r)
	if err != nil {
		data := h.registerData(r)
		_, _, data.Error = handlers.ClassifyError(err)
		if errors.Is(err, register.ErrMissingDocument) {
			data.Error = err.Error()
		}
		h.render(w, http.StatusBadRequest, "register.html", data)
		return
	}

	result, err := h.registration.Register(r.Context(), req)
	if err != nil {
		status, _, message := handlers.ClassifyError(err)
		data := h.registerData(r)
		data.Error = message

		var attemptErr *registration.AttemptError
		if errors.As(err, &attemptErr) {
			data.Step = string(attemptErr.Step)
			data.History = attemptErr.History
		}
		h.render(w, status, "register.html", data)
		return
	}

	if err := h.browser.SignIn(w, r, result.Record.FirstName, result.Record); err != nil {
		slog.Error("register: failed to sign in", "did", result.Record.DIDID, "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// AdminPageHandler renders the admin console.
// GET /admin
func (h *Handlers) AdminPageHandler(w http.ResponseWriter, r *http.Request) {
	if !h.browser.Load(r).IsAdmin {
		http.Redirect(w, r, "/loginAdmin", http.StatusFound)
		return
	}

	ctx := r.Context()
	data := AdminPageData{Wallet: h.wallet()}

	if balance, err := h.treasury.NetworkBalance(ctx); err == nil {
		data.Balance = balance.String()
	} else {
		slog.Warn("admin: failed to load contract balance", "error", err)
	}

	dids, err := h.users.ListRegisteredDIDs(ctx)
	if err != nil {
		_, _, data.Error = handlers.ClassifyError(err)
		h.render(w, http.StatusOK, "admin.html", data)
		return
	}
	data.Users = h.adminRows(ctx, dids)

	h.render(w, http.StatusOK, "admin.html", data)
}

func (h *Handlers) adminRows(ctx context.Context, dids []string) []AdminUserRow {
	rows := make([]AdminUserRow, 0, len(dids))
	for _, d := range dids {
		row := AdminUserRow{DID: d}
		details, err := h.users.GetUserDetails(ctx, d)
		if err != nil {
			_, _, row.Error = handlers.ClassifyError(err)
		} else {
			row.Details = details
			if details.DepositAmount != nil {
				row.Deposit = session.WeiToEther(details.DepositAmount).String()
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// LoginAdminPageHandler renders the admin login form.
// GET /loginAdmin
func (h *Handlers) LoginAdminPageHandler(w http.ResponseWriter, r *http.Request) {
	if h.browser.Load(r).IsAdmin {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	h.render(w, http.StatusOK, "login_admin.html", LoginPageData{})
}

// LoginAdminSubmitHandler checks the admin credentials.
// POST /loginAdmin
func (h *Handlers) LoginAdminSubmitHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	username := r.FormValue("username")

	if err := h.admin.Login(username, r.FormValue("password")); err != nil {
		log.Printf("[AUTH_FAILURE] type=admin_login_form ip=%s", r.RemoteAddr)
		h.render(w, http.StatusUnauthorized, "login_admin.html", LoginPageData{
			Username: username,
			Error:    "Invalid username or password",
		})
		return
	}

	if err := h.browser.LoginAdmin(w, r); err != nil {
		slog.Error("admin login: failed to save session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// LogoutHandler clears the browser session.
// GET /logout
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	wasAdmin := h.browser.Load(r).IsAdmin
	if err := h.browser.SignOut(w, r); err != nil {
		slog.Error("logout: failed to clear session", "error", err)
	}
	if wasAdmin {
		http.Redirect(w, r, "/loginAdmin", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/register", http.StatusFound)
}

func (h *Handlers) registerData(r *http.Request) RegisterPageData {
	data := RegisterPageData{
		Wallet: h.wallet(),
		Fee:    session.WeiToEther(h.registration.Fee()).String(),
		Form:   map[string]string{},
	}
	if r != nil {
		for _, k := range []string{"firstName", "lastName", "passportNo", "birthday"} {
			data.Form[k] = r.FormValue(k)
		}
	}
	return data
}

func (h *Handlers) wallet() WalletData {
	s := h.sessions.State()
	data := WalletData{Connected: s.Connected}
	if s.Account != nil {
		data.Account = s.Account.Hex()
	}
	if b := s.Balance(); b != nil {
		data.Balance = b.StringFixed(4)
	}
	return data
}

func (h *Handlers) render(w http.ResponseWriter, status int, name string, data interface{}) {
	if err := h.templates.RenderStatus(w, status, name, data); err != nil {
		slog.Error("failed to render page", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
