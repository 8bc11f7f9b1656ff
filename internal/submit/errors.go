package submit

import (
	"errors"
	"fmt"

	"github.com/kingrea/signroll/internal/roster"
)

var (
	// ErrEmptyCapture means the surface holds no ink.
	ErrEmptyCapture = errors.New("submit: signature is empty")
	// ErrNoParticipantSelected means no name was chosen.
	ErrNoParticipantSelected = errors.New("submit: no participant selected")
	// ErrParticipantNotFound means the chosen name is not on the roster.
	ErrParticipantNotFound = errors.New("submit: participant not found")
	// ErrConflict means the participant was already signed at commit time.
	ErrConflict = roster.ErrConflict
)

// UnexpectedError wraps any other failure, such as an encoding or store
// write error.
type UnexpectedError struct {
	Op  string
	Err error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("submit: %s: %v", e.Op, e.Err)
}

func (e *UnexpectedError) Unwrap() error {
	return e.Err
}

// Kind classifies a submission failure.
type Kind int

const (
	KindNone Kind = iota
	KindEmptyCapture
	KindNoParticipantSelected
	KindParticipantNotFound
	KindConflict
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindEmptyCapture:
		return "empty-capture"
	case KindNoParticipantSelected:
		return "no-participant-selected"
	case KindParticipantNotFound:
		return "participant-not-found"
	case KindConflict:
		return "conflict"
	default:
		return "unexpected"
	}
}

// Classify maps err onto the submission taxonomy.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrEmptyCapture):
		return KindEmptyCapture
	case errors.Is(err, ErrNoParticipantSelected):
		return KindNoParticipantSelected
	case errors.Is(err, ErrParticipantNotFound):
		return KindParticipantNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindUnexpected
	}
}

// Message returns the short text shown to the person signing.
func Message(err error) string {
	switch Classify(err) {
	case KindNone:
		return "Signature saved successfully!"
	case KindEmptyCapture:
		return "Please draw a signature before submitting."
	case KindNoParticipantSelected:
		return "Please select a name."
	case KindParticipantNotFound:
		return "Selected name not found."
	case KindConflict:
		return "A signature already exists for this name."
	default:
		var unexpected *UnexpectedError
		if errors.As(err, &unexpected) {
			return "Error: " + unexpected.Err.Error()
		}
		return "Error: " + err.Error()
	}
}
