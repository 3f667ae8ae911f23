package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNoteNotFound       = errors.New("note not found")
	ErrDuplicateWeek      = errors.New("a note already exists for this week")
	ErrSettingsNotFound   = errors.New("settings not found")
)

// ValidationError wraps a rejected request body.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }
