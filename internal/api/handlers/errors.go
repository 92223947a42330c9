package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"

	"Vouch/internal/auth"
	"Vouch/internal/core/content"
	"Vouch/internal/core/registration"
	"Vouch/internal/core/registry"
	"Vouch/internal/core/session"
	"Vouch/internal/core/treasury"
	"Vouch/internal/core/users"
	"Vouch/internal/did"
	"Vouch/internal/wallet"
)

// WriteError writes a standardized JSON error response
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   errorType,
		"message": message,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// WriteJSON writes v as a JSON response body.
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// WriteServiceError maps a domain error to an HTTP status and error type.
// Unknown errors are logged and reported as a generic 500.
func WriteServiceError(w http.ResponseWriter, err error) {
	status, errorType, message := ClassifyError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err)
	}
	WriteError(w, status, errorType, message)
}

// ClassifyError returns the status, error type and user-facing message for err.
func ClassifyError(err error) (int, string, string) {
	var (
		revertErr  *registry.RevertError
		profileErr *content.InvalidProfileError
		cidErr     *content.InvalidCIDError
		integrity  *content.IntegrityError
		recordErr  *users.InvalidRecordError
	)

	switch {
	case errors.As(err, &revertErr):
		return http.StatusUnprocessableEntity, "TransactionReverted", revertErr.Reason
	case errors.Is(err, registry.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "InsufficientFunds", err.Error()
	case errors.Is(err, registry.ErrTransactionFailed) && errors.Is(err, wallet.ErrUserRejected):
		return http.StatusConflict, "TransactionFailed", "The transaction was rejected in the wallet"
	case errors.Is(err, registry.ErrTransactionFailed):
		return http.StatusBadGateway, "TransactionFailed", "The transaction did not complete"
	case errors.Is(err, registry.ErrContractNotDeployed):
		return http.StatusServiceUnavailable, "ContractNotDeployed", "Contract not deployed on the connected network"
	case errors.Is(err, wallet.ErrUserRejected):
		return http.StatusConflict, "UserRejected", "The request was rejected in the wallet"
	case errors.Is(err, wallet.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "ProviderUnavailable", "No wallet provider is reachable"
	case errors.Is(err, session.ErrNotConnected):
		return http.StatusConflict, "NotConnected", "Connect a wallet first"
	case errors.Is(err, registration.ErrAttemptInFlight):
		return http.StatusConflict, "AttemptInFlight", err.Error()
	case errors.Is(err, content.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType, "UnsupportedFileType", "Only PDF documents are accepted"
	case errors.Is(err, content.ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge, "DocumentTooLarge", err.Error()
	case errors.Is(err, content.ErrEmptyDocument):
		return http.StatusBadRequest, "EmptyDocument", err.Error()
	case errors.As(err, &profileErr):
		return http.StatusBadRequest, "InvalidProfile", profileErr.Error()
	case errors.As(err, &cidErr):
		return http.StatusBadRequest, "InvalidCID", cidErr.Error()
	case errors.As(err, &recordErr):
		return http.StatusBadRequest, "InvalidRecord", recordErr.Error()
	case errors.Is(err, treasury.ErrInvalidAmount):
		return http.StatusBadRequest, "InvalidAmount", err.Error()
	case errors.Is(err, content.ErrNotFound),
		errors.Is(err, users.ErrUserNotFound),
		errors.Is(err, registry.ErrUserNotRegistered):
		return http.StatusNotFound, "NotFound", err.Error()
	case errors.As(err, &integrity):
		return http.StatusBadGateway, "IntegrityError", "Stored content failed verification"
	case errors.Is(err, content.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "StorageUnavailable", "Content storage is unavailable"
	case errors.Is(err, did.ErrDIDGeneration):
		return http.StatusInternalServerError, "DIDGenerationFailed", "Could not generate a DID"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "InvalidCredentials", "Invalid username or password"
	default:
		return http.StatusInternalServerError, "InternalServerError", "An internal error occurred"
	}
}
