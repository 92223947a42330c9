package users

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when the cache holds no record for a DID.
	ErrUserNotFound = errors.New("user not found")
)

// InvalidRecordError is returned when a record cannot be cached.
type InvalidRecordError struct {
	Field  string
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid user record: %s %s", e.Field, e.Reason)
}
