// Package register serves the registration form submission.
package register

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"Vouch/internal/api/handlers"
	"Vouch/internal/auth"
	"Vouch/internal/core/content"
	"Vouch/internal/core/registration"
)

// DocumentField is the multipart field holding the uploaded document.
const DocumentField = "docFile"

// form overhead allowed on top of the document itself
const formSlack = 1 << 20

// ErrMissingDocument is returned when the form has no document attached.
var ErrMissingDocument = errors.New("a document file is required")

// RegisterHandler handles POST /api/register.
type RegisterHandler struct {
	service registration.Service
	browser *auth.BrowserState
}

// NewRegisterHandler creates a registration handler.
func NewRegisterHandler(service registration.Service, browser *auth.BrowserState) *RegisterHandler {
	return &RegisterHandler{service: service, browser: browser}
}

// HandleRegister runs a registration attempt and, once it is confirmed,
// signs the browser in as the new user.
func (h *RegisterHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := ParseRequest(w, r)
	if err != nil {
		writeParseError(w, err)
		return
	}

	result, err := h.service.Register(r.Context(), req)
	if err != nil {
		handlers.WriteServiceError(w, err)
		return
	}

	if err := h.browser.SignIn(w, r, result.Record.FirstName, result.Record); err != nil {
		// The registration is on chain; only the cookie failed.
		slog.Error("failed to sign in after registration", "did", result.Record.DIDID, "error", err)
	}

	handlers.WriteJSON(w, http.StatusCreated, result)
}

// ParseRequest reads the multipart registration form. The document size is
// capped at content.MaxDocumentSize.
func ParseRequest(w http.ResponseWriter, r *http.Request) (registration.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, content.MaxDocumentSize+formSlack)
	if err := r.ParseMultipartForm(formSlack); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return registration.Request{}, content.ErrDocumentTooLarge
		}
		return registration.Request{}, fmt.Errorf("invalid form: %w", err)
	}

	req := registration.Request{
		Profile: content.Profile{
			FirstName:  strings.TrimSpace(r.FormValue("firstName")),
			LastName:   strings.TrimSpace(r.FormValue("lastName")),
			PassportNo: strings.TrimSpace(r.FormValue("passportNo")),
			Birthday:   strings.TrimSpace(r.FormValue("birthday")),
		},
	}

	file, header, err := r.FormFile(DocumentField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return registration.Request{}, ErrMissingDocument
		}
		return registration.Request{}, fmt.Errorf("invalid document: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, content.MaxDocumentSize+1))
	if err != nil {
		return registration.Request{}, fmt.Errorf("failed to read document: %w", err)
	}
	if len(data) > content.MaxDocumentSize {
		return registration.Request{}, content.ErrDocumentTooLarge
	}

	req.Document = content.Document{
		Name:      header.Filename,
		MediaType: mediaType(header.Header.Get("Content-Type"), data),
		Data:      data,
	}
	return req, nil
}

// mediaType prefers the declared part type and falls back to sniffing.
func mediaType(declared string, data []byte) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

func writeParseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, content.ErrDocumentTooLarge):
		handlers.WriteServiceError(w, err)
	case errors.Is(err, ErrMissingDocument):
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
	default:
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid registration form")
	}
}
