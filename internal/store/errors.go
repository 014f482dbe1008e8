package store

import (
	"errors"
	"fmt"

	"github.com/nhle/leadboard/internal/model"
)

// Error taxonomy shared by every Store implementation.
var (
	// ErrStoreUnavailable is a transient network, auth or service failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound means the entity does not exist (often benign).
	ErrNotFound = errors.New("not found")
	// ErrStoreConflict is a uniqueness or constraint violation.
	ErrStoreConflict = errors.New("store conflict")
)

// Error describes a failed store call. It matches its Class sentinel
// and the underlying cause with errors.Is.
type Error struct {
	Op    string // "listing", "creating", "updating", "deleting", "getting"
	Kind  model.EntityKind
	ID    string
	Class error
	Err   error
}

func (e *Error) Error() string {
	target := string(e.Kind)
	if e.ID != "" {
		target += " " + e.ID
	}
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, target, e.Class)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, target, e.Class, e.Err)
}

// Unwrap exposes both the class sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Class}
	}
	return []error{e.Class, e.Err}
}

// NewError builds a classified store error.
func NewError(op string, kind model.EntityKind, id string, class, cause error) error {
	return &Error{Op: op, Kind: kind, ID: id, Class: class, Err: cause}
}

// IsNotFound reports whether err (or any error in its chain) is ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnavailable reports whether err is ErrStoreUnavailable.
func IsUnavailable(err error) bool { return errors.Is(err, ErrStoreUnavailable) }

// IsConflict reports whether err is ErrStoreConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrStoreConflict) }
