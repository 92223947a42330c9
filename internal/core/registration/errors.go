package registration

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrAttemptInFlight is returned when a registration is already running.
var ErrAttemptInFlight = errors.New("a registration attempt is already in progress")

// AttemptError reports the step a registration attempt failed in.
type AttemptError struct {
	AttemptID uuid.UUID
	Step      Step
	History   []Step
	Err       error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("registration %s failed while %s: %v", e.AttemptID, e.Step, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}
