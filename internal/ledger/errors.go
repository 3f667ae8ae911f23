package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateWeek = errors.New("a note already exists for this week")
	ErrEditWindow    = errors.New("notes can only be edited during their own week")
	ErrNoteNotFound  = errors.New("note not found")
	ErrFutureWeek    = errors.New("notes cannot be written for a week that has not started")
)

// ValidationError wraps field-level failures reported by the validator.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
