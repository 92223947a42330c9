// Package admin serves the admin console API: login, registered users,
// document retrieval and contract funds.
package admin

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"Vouch/internal/api/handlers"
	"Vouch/internal/auth"
	"Vouch/internal/core/content"
	"Vouch/internal/core/treasury"
	"Vouch/internal/core/users"
	"Vouch/internal/did"
)

// CredentialsRequest is the body of the login and token endpoints.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries an admin bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// WithdrawRequest is the body of POST /api/admin/withdraw. Amount is in ether.
type WithdrawRequest struct {
	Amount string `json:"amount"`
}

// AdminHandler handles /api/admin.
type AdminHandler struct {
	browser  *auth.BrowserState
	admin    *auth.AdminAuthenticator
	users    users.UserService
	content  content.Service
	treasury treasury.Service
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(
	browser *auth.BrowserState,
	admin *auth.AdminAuthenticator,
	userService users.UserService,
	contentService content.Service,
	treasuryService treasury.Service,
) *AdminHandler {
	return &AdminHandler{
		browser:  browser,
		admin:    admin,
		users:    userService,
		content:  contentService,
		treasury: treasuryService,
	}
}

// HandleLogin checks the admin credentials and marks the browser as admin.
// Any user sign-in on this browser is dropped.
// POST /api/admin/login
func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.checkCredentials(w, r) {
		return
	}
	if err := h.browser.LoginAdmin(w, r); err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]bool{"isAdmin": true})
}

// HandleLogout clears the browser session.
// POST /api/admin/logout
func (h *AdminHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.browser.SignOut(w, r); err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleToken exchanges admin credentials for a bearer token.
// POST /api/admin/token
func (h *AdminHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if !h.checkCredentials(w, r) {
		return
	}
	token, expiresAt, err := h.admin.IssueToken()
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *AdminHandler) checkCredentials(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return false
	}

	if err := h.admin.Login(req.Username, req.Password); err != nil {
		log.Printf("[AUTH_FAILURE] type=admin_login ip=%s path=%s", r.RemoteAddr, r.URL.Path)
		handlers.WriteServiceError(w, err)
		return false
	}
	return true
}

// HandleListUsers lists every DID registered on the contract.
// GET /api/admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	dids, err := h.users.ListRegisteredDIDs(r.Context())
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	if dids == nil {
		dids = []string{}
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{"dids": dids})
}

// HandleUserDetails returns the contract record and profile for a DID.
// GET /api/admin/users/{did}
func (h *AdminHandler) HandleUserDetails(w http.ResponseWriter, r *http.Request) {
	didStr, ok := didParam(w, r)
	if !ok {
		return
	}
	details, err := h.users.GetUserDetails(r.Context(), didStr)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, details)
}

// HandleDocument streams the uploaded document for a DID.
// GET /api/admin/users/{did}/document
func (h *AdminHandler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	didStr, ok := didParam(w, r)
	if !ok {
		return
	}
	details, err := h.users.GetUserDetails(r.Context(), didStr)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	data, err := h.content.RetrieveDocument(r.Context(), details.DocumentCID)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	filename := details.DocumentCID + ".pdf"
	if cached, err := h.users.GetCachedUser(r.Context(), didStr); err == nil && cached.DocFileName != "" {
		filename = cached.DocFileName
	}

	w.Header().Set("Content-Type", content.AcceptedDocumentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+sanitizeFilename(filename)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Failed to write document for %s: %v", didStr, err)
	}
}

// HandleBundle exports the profile and document blocks of a DID as a CAR file.
// GET /api/admin/users/{did}/bundle
func (h *AdminHandler) HandleBundle(w http.ResponseWriter, r *http.Request) {
	didStr, ok := didParam(w, r)
	if !ok {
		return
	}
	details, err := h.users.GetUserDetails(r.Context(), didStr)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := h.content.ExportBundle(r.Context(), &buf, details.ProfileCID, details.DocumentCID); err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.ipld.car; version=1")
	w.Header().Set("Content-Disposition", `attachment; filename="`+details.ProfileCID+`.car"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Failed to write bundle for %s: %v", didStr, err)
	}
}

// HandleBalance returns the contract balance in ether.
// GET /api/admin/balance
func (h *AdminHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.treasury.NetworkBalance(r.Context())
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}

// HandleWithdraw moves funds from the contract to the connected wallet.
// POST /api/admin/withdraw
func (h *AdminHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "amount must be a decimal ether value")
		return
	}

	result, err := h.treasury.Withdraw(r.Context(), amount)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, result)
}

// HandleSync rebuilds the user cache from the contract.
// POST /api/admin/sync
func (h *AdminHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	result, err := h.users.SyncFromChain(r.Context())
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, result)
}

func didParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	didStr := strings.TrimSpace(chi.URLParam(r, "did"))
	if !did.ValidateDID(didStr) {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid DID")
		return "", false
	}
	return didStr, true
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, name)
}
