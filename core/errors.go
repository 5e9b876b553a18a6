package core

import "github.com/pkg/errors"

// FieldError ties an error message to one struct field, keyed by the field's
// JSON name. The API error handler flattens these into a field -> message map.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a domain rule violation (duplicate matricule, duplicate
// course code, expired reset token). Err carries the overall message; Fields
// carries the per-field breakdown when one exists.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown marks an error as unrecoverable. The API error handler checks for
// it with IsShutdown and stops the server gracefully.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err, at its cause, requests a graceful stop.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
