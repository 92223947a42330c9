package web

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"Vouch/internal/core/registration"
	"Vouch/internal/core/treasury"
	"Vouch/internal/core/users"
)

func TestNewTemplates(t *testing.T) {
	templates, err := NewTemplates()
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}
	if templates == nil {
		t.Fatal("NewTemplates() returned nil")
	}
}

func TestTemplatesRender_Register(t *testing.T) {
	templates, err := NewTemplates()
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}

	data := RegisterPageData{
		Fee:     "0.01",
		Form:    map[string]string{"firstName": "Ada"},
		Error:   "Already registered",
		Step:    string(registration.StepSubmittingTransaction),
		History: []registration.Step{registration.StepIdle, registration.StepGeneratingDID, registration.StepFailed},
	}

	w := httptest.NewRecorder()
	if err := templates.Render(w, "register.html", data); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	body := w.Body.String()

	for _, want := range []string{
		"Already registered",
		"while submittingTransaction",
		`value="Ada"`,
		"Register and pay 0.01 ETH",
		"Connect wallet",
		`id="connection-retry"`,
		`class="failed"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("register page does not contain %q", want)
		}
	}
}

func TestTemplatesRender_Dashboard(t *testing.T) {
	templates, err := NewTemplates()
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}

	data := DashboardPageData{
		Wallet:   WalletData{Connected: true, Account: "0xabc", Balance: "1.2500"},
		Username: "Ada",
		User:     &users.LocalUserRecord{FirstName: "Ada", LastName: "Lovelace", DIDID: "did:key:zAda", DocFileName: "passport.pdf"},
		Deposits: []treasury.Deposit{{
			Amount:    decimal.RequireFromString("0.5"),
			Timestamp: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
			TxHash:    "0xfeed",
		}},
	}

	w := httptest.NewRecorder()
	if err := templates.Render(w, "dashboard.html", data); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	body := w.Body.String()

	for _, want := range []string{"Welcome, Ada", "Ada Lovelace", "did:key:zAda", "2024-05-01 09:30", "0xfeed", "1.2500"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard does not contain %q", want)
		}
	}
	if strings.Contains(body, "Connect wallet") {
		t.Error("connected wallet should not offer to connect")
	}
}

func TestTemplatesRender_Admin(t *testing.T) {
	templates, err := NewTemplates()
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}

	data := AdminPageData{
		Balance: "2",
		Users: []AdminUserRow{
			{DID: "did:key:zOk", Deposit: "0.01", Details: &users.UserDetails{Wallet: "0x1"}},
			{DID: "did:key:zBroken", Error: "content not found"},
		},
	}

	w := httptest.NewRecorder()
	if err := templates.Render(w, "admin.html", data); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	body := w.Body.String()

	if !strings.Contains(body, "2 ETH") {
		t.Error("admin page does not show the contract balance")
	}
	if !strings.Contains(body, "/api/admin/users/did:key:zOk/document") {
		t.Error("admin page does not link the document")
	}
	if !strings.Contains(body, "content not found") {
		t.Error("admin page does not show the row error")
	}
}

func TestTemplatesRender_Missing(t *testing.T) {
	templates, err := NewTemplates()
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}

	w := httptest.NewRecorder()
	if err := templates.Render(w, "nope.html", nil); err == nil {
		t.Fatal("expected an error for a missing template")
	}
	if w.Body.Len() != 0 {
		t.Error("nothing should be written for a failed render")
	}
}
