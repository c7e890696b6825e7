package config

import (
	"errors"
	"fmt"
)

// Error is a configuration problem detected before the first cycle. The
// process exits with status 2 on it.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error for field.
func Errorf(field, format string, args ...interface{}) error {
	return &Error{Field: field, Err: fmt.Errorf(format, args...)}
}

// IsError reports whether err is or wraps a configuration *Error.
func IsError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
