package content

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the store holds no content for a CID.
	ErrNotFound = errors.New("content not found")

	// ErrStorageUnavailable wraps failures of the underlying block store.
	ErrStorageUnavailable = errors.New("content storage unavailable")

	// ErrUnsupportedFileType is returned for documents that are not PDFs.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrDocumentTooLarge is returned for documents above MaxDocumentSize.
	ErrDocumentTooLarge = errors.New("document too large")

	// ErrEmptyDocument is returned when a registration carries a zero-length
	// document. The store itself accepts empty blocks.
	ErrEmptyDocument = errors.New("document is empty")
)

// InvalidCIDError is returned when a CID string cannot be parsed.
type InvalidCIDError struct {
	CID string
	Err error
}

func (e *InvalidCIDError) Error() string {
	return fmt.Sprintf("invalid CID %q: %v", e.CID, e.Err)
}

func (e *InvalidCIDError) Unwrap() error {
	return e.Err
}

// InvalidProfileError describes a missing or malformed profile field.
type InvalidProfileError struct {
	Field  string
	Reason string
}

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("invalid profile: %s %s", e.Field, e.Reason)
}

// IntegrityError is returned when stored bytes no longer hash to their CID.
type IntegrityError struct {
	CID string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("content for %s failed integrity check", e.CID)
}
