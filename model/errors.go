package model

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var (
	ValidationError = errors.New("validation failed")
	maskAny         = errors.WithStack
)

// IsValidation returns true when the given error (or one of the
// errors combined in it) is a validation error.
func IsValidation(err error) bool {
	for _, e := range multierr.Errors(err) {
		if errors.Cause(e) == ValidationError {
			return true
		}
	}
	return false
}

// invalid returns a validation error with the given message.
func invalid(msg string, args ...interface{}) error {
	return errors.Wrapf(ValidationError, msg, args...)
}
