package flow

import (
	"errors"
	"fmt"
)

// State is the position of a flow in the contribution workflow. A failed
// submission returns to DetailsVisible with an error message.
type State int

const (
	Idle State = iota
	DetailsVisible
	Submitting
	Succeeded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DetailsVisible:
		return "details"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrSubmitInFlight is returned while a submission is outstanding.
	ErrSubmitInFlight = errors.New("submission already in progress")
	// ErrInvalidState is returned when an operation is not allowed in the
	// current state.
	ErrInvalidState = errors.New("operation not allowed in current state")
)

// Field keys used by ValidationError in addition to the pet field names.
const (
	FieldPhotos = "photos"
	FieldTerms  = "terms"
)

// ValidationError names the first unmet form requirement.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Result is the outcome of a submission: *Success or *Failure.
type Result interface {
	// Text is the message shown to the user.
	Text() string
	isResult()
}

// Success is an accepted contribution.
type Success struct {
	Session             string
	Message             string
	TransformedImageURL string
	HumanAge            *float64
	Prompt              string
	Count               int
}

// Failure is a rejected or failed submission. Err keeps the diagnostic cause.
type Failure struct {
	Message string
	Err     error
}

func (s *Success) Text() string { return s.Message }
func (f *Failure) Text() string { return f.Message }

func (*Success) isResult() {}
func (*Failure) isResult() {}
