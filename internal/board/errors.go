package board

import (
	"errors"
	"fmt"
)

// ErrSuperseded is reported by a ticket whose mutation was discarded
// because the board was resynchronized before it ran.
var ErrSuperseded = errors.New("mutation superseded by resync")

// ValidationError is a caller-side rejection. It is returned before any
// store call is made.
type ValidationError struct {
	Action string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Reason)
}

func invalid(action, reason string) error {
	return &ValidationError{Action: action, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
