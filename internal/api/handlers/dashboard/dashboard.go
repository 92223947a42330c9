// Package dashboard serves the signed-in user's own data: the cached
// registration record, deposits and deposit history.
package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"Vouch/internal/api/handlers"
	"Vouch/internal/api/middleware"
	"Vouch/internal/core/treasury"
	"Vouch/internal/core/users"
)

// DepositRequest is the body of POST /api/me/deposit. Amount is in ether.
type DepositRequest struct {
	Amount string `json:"amount"`
}

// MeResponse is the dashboard view of the signed-in user.
type MeResponse struct {
	Username    string                 `json:"username"`
	DisplayName string                 `json:"displayName"`
	Record      *users.LocalUserRecord `json:"record"`
}

// DashboardHandler handles /api/me.
type DashboardHandler struct {
	users    users.UserService
	treasury treasury.Service
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(userService users.UserService, treasuryService treasury.Service) *DashboardHandler {
	return &DashboardHandler{users: userService, treasury: treasuryService}
}

// HandleMe returns the signed-in user. The server-side cache is preferred
// over the copy in the cookie when it exists.
// GET /api/me
func (h *DashboardHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r)
	if id.UserData == nil {
		handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Sign in by registering first")
		return
	}

	rec := id.UserData
	if cached, err := h.users.GetCachedUser(r.Context(), rec.DIDID); err == nil {
		rec = cached
	}

	handlers.WriteJSON(w, http.StatusOK, MeResponse{
		Username:    id.Username,
		DisplayName: rec.DisplayName(),
		Record:      rec,
	})
}

// HandleDeposit adds funds to the user's DID.
// POST /api/me/deposit
func (h *DashboardHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := middleware.GetIdentity(r)
	if id.UserData == nil {
		handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Sign in by registering first")
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "amount must be a decimal ether value")
		return
	}

	result, err := h.treasury.Deposit(r.Context(), id.UserData.DIDID, amount)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, result)
}

// HandleHistory lists the user's deposits.
// GET /api/me/deposits
func (h *DashboardHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r)
	if id.UserData == nil {
		handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Sign in by registering first")
		return
	}

	deposits, err := h.treasury.DepositHistory(r.Context(), id.UserData.DIDID)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}
	if deposits == nil {
		deposits = []treasury.Deposit{}
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{"deposits": deposits})
}
