package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"Vouch/internal/api/middleware"
	"Vouch/internal/auth"
	"Vouch/internal/core/registry"
	"Vouch/internal/core/treasury"
	"Vouch/internal/core/users"
)

// MockUserService is a mock implementation of users.UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) IndexUser(ctx context.Context, rec *users.LocalUserRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockUserService) GetCachedUser(ctx context.Context, did string) (*users.LocalUserRecord, error) {
	args := m.Called(ctx, did)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.LocalUserRecord), args.Error(1)
}

func (m *MockUserService) ListRegisteredDIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserService) GetUserDetails(ctx context.Context, did string) (*users.UserDetails, error) {
	args := m.Called(ctx, did)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.UserDetails), args.Error(1)
}

func (m *MockUserService) SyncFromChain(ctx context.Context) (*users.SyncResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.SyncResult), args.Error(1)
}

// MockTreasuryService is a mock implementation of treasury.Service
type MockTreasuryService struct {
	mock.Mock
}

func (m *MockTreasuryService) NetworkBalance(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTreasuryService) Withdraw(ctx context.Context, amount decimal.Decimal) (*treasury.TxResult, error) {
	args := m.Called(ctx, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.TxResult), args.Error(1)
}

func (m *MockTreasuryService) Deposit(ctx context.Context, did string, amount decimal.Decimal) (*treasury.TxResult, error) {
	args := m.Called(ctx, did, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.TxResult), args.Error(1)
}

func (m *MockTreasuryService) DepositHistory(ctx context.Context, did string) ([]treasury.Deposit, error) {
	args := m.Called(ctx, did)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]treasury.Deposit), args.Error(1)
}

var signedIn = auth.Identity{
	IsAuthenticated: true,
	Username:        "Ada",
	UserData:        &users.LocalUserRecord{FirstName: "Ada", DIDID: "did:key:zAda", UserInfoCID: "p", FileHash: "d"},
}

func withIdentity(r *http.Request, id auth.Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.IdentityKey, id))
}

func TestHandleMe(t *testing.T) {
	t.Run("prefers the server cache", func(t *testing.T) {
		userSvc := new(MockUserService)
		userSvc.On("GetCachedUser", mock.Anything, "did:key:zAda").
			Return(&users.LocalUserRecord{FirstName: "Ada", LastName: "Lovelace", DIDID: "did:key:zAda"}, nil)
		h := NewDashboardHandler(userSvc, new(MockTreasuryService))

		w := httptest.NewRecorder()
		h.HandleMe(w, withIdentity(httptest.NewRequest(http.MethodGet, "/api/me", nil), signedIn))

		require.Equal(t, http.StatusOK, w.Code)
		var resp MeResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "Ada Lovelace", resp.DisplayName)
		assert.Equal(t, "Ada", resp.Username)
	})

	t.Run("falls back to the cookie copy", func(t *testing.T) {
		userSvc := new(MockUserService)
		userSvc.On("GetCachedUser", mock.Anything, "did:key:zAda").Return(nil, users.ErrUserNotFound)
		h := NewDashboardHandler(userSvc, new(MockTreasuryService))

		w := httptest.NewRecorder()
		h.HandleMe(w, withIdentity(httptest.NewRequest(http.MethodGet, "/api/me", nil), signedIn))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"displayName":"Ada"`)
	})

	t.Run("anonymous", func(t *testing.T) {
		h := NewDashboardHandler(new(MockUserService), new(MockTreasuryService))
		w := httptest.NewRecorder()
		h.HandleMe(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandleDeposit(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{name: "deposit", body: `{"amount":"0.25"}`, wantStatus: http.StatusOK},
		{name: "not a number", body: `{"amount":"lots"}`, wantStatus: http.StatusBadRequest},
		{name: "bad json", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "invalid amount", body: `{"amount":"0"}`, serviceErr: treasury.ErrInvalidAmount, wantStatus: http.StatusBadRequest},
		{name: "insufficient funds", body: `{"amount":"9"}`, serviceErr: registry.ErrInsufficientFunds, wantStatus: http.StatusPaymentRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			treasurySvc := new(MockTreasuryService)
			if tt.serviceErr != nil {
				treasurySvc.On("Deposit", mock.Anything, "did:key:zAda", mock.Anything).Return(nil, tt.serviceErr)
			} else {
				treasurySvc.On("Deposit", mock.Anything, "did:key:zAda", mock.MatchedBy(func(d decimal.Decimal) bool {
					return d.Equal(decimal.RequireFromString("0.25"))
				})).Return(&treasury.TxResult{TxHash: "0x1", BlockNumber: 3}, nil)
			}
			h := NewDashboardHandler(new(MockUserService), treasurySvc)

			r := httptest.NewRequest(http.MethodPost, "/api/me/deposit", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.HandleDeposit(w, withIdentity(r, signedIn))

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestHandleHistory(t *testing.T) {
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	treasurySvc := new(MockTreasuryService)
	treasurySvc.On("DepositHistory", mock.Anything, "did:key:zAda").Return([]treasury.Deposit{
		{Amount: decimal.RequireFromString("0.01"), Timestamp: when, TxHash: "0x1", BlockNumber: 9},
	}, nil)
	h := NewDashboardHandler(new(MockUserService), treasurySvc)

	w := httptest.NewRecorder()
	h.HandleHistory(w, withIdentity(httptest.NewRequest(http.MethodGet, "/api/me/deposits", nil), signedIn))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Deposits []treasury.Deposit `json:"deposits"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Deposits, 1)
	assert.True(t, resp.Deposits[0].Amount.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, uint64(9), resp.Deposits[0].BlockNumber)
}

func TestHandleHistory_Empty(t *testing.T) {
	treasurySvc := new(MockTreasuryService)
	treasurySvc.On("DepositHistory", mock.Anything, "did:key:zAda").Return(nil, nil)
	h := NewDashboardHandler(new(MockUserService), treasurySvc)

	w := httptest.NewRecorder()
	h.HandleHistory(w, withIdentity(httptest.NewRequest(http.MethodGet, "/api/me/deposits", nil), signedIn))

	assert.JSONEq(t, `{"deposits":[]}`, w.Body.String())
}
