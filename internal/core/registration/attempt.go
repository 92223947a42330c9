package registration

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Step is a state of the registration machine.
type Step string

const (
	StepIdle                  Step = "idle"
	StepGeneratingDID         Step = "generatingDid"
	StepStoringProfile        Step = "storingProfile"
	StepStoringDocument       Step = "storingDocument"
	StepSubmittingTransaction Step = "submittingTransaction"
	StepConfirmed             Step = "confirmed"
	StepFailed                Step = "failed"
)

// successor is the only forward edge out of each non-terminal step.
var successor = map[Step]Step{
	StepIdle:                  StepGeneratingDID,
	StepGeneratingDID:         StepStoringProfile,
	StepStoringProfile:        StepStoringDocument,
	StepStoringDocument:       StepSubmittingTransaction,
	StepSubmittingTransaction: StepConfirmed,
}

// Terminal reports whether no transition leaves s.
func (s Step) Terminal() bool {
	return s == StepConfirmed || s == StepFailed
}

// Attempt is one run of the registration machine. Attempts are never reused.
type Attempt struct {
	ID uuid.UUID

	mu      sync.Mutex
	step    Step
	history []Step
	err     error
	observe func(uuid.UUID, Step)
}

func newAttempt(observe func(uuid.UUID, Step)) *Attempt {
	a := &Attempt{
		ID:      uuid.New(),
		step:    StepIdle,
		history: []Step{StepIdle},
		observe: observe,
	}
	a.notify(StepIdle)
	return a
}

// Step returns the current step.
func (a *Attempt) Step() Step {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.step
}

// History returns every step visited, in order.
func (a *Attempt) History() []Step {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Step(nil), a.history...)
}

// Err returns the failure reason, if the attempt failed.
func (a *Attempt) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *Attempt) advance(next Step) error {
	a.mu.Lock()
	if successor[a.step] != next {
		cur := a.step
		a.mu.Unlock()
		return fmt.Errorf("invalid registration transition %s -> %s", cur, next)
	}
	a.step = next
	a.history = append(a.history, next)
	a.mu.Unlock()

	a.notify(next)
	return nil
}

// fail moves the attempt to Failed from any non-terminal step and returns the
// error describing where it failed.
func (a *Attempt) fail(err error) error {
	a.mu.Lock()
	if a.step.Terminal() {
		a.mu.Unlock()
		return err
	}
	at := a.step
	a.step = StepFailed
	a.history = append(a.history, StepFailed)
	a.err = err
	history := append([]Step(nil), a.history...)
	a.mu.Unlock()

	a.notify(StepFailed)
	return &AttemptError{AttemptID: a.ID, Step: at, History: history, Err: err}
}

func (a *Attempt) notify(step Step) {
	if a.observe != nil {
		a.observe(a.ID, step)
	}
}
