// Package errs defines the failure kinds the core surfaces to its callers.
// Handlers map each kind to a distinct HTTP status; the core never retries.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnknownEntity     = errors.New("unknown entity")
	ErrValidation        = errors.New("validation error")
)

func Forbiddenf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrForbidden, args)...)
}

func InsufficientStockf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrInsufficientStock, args)...)
}

func InvalidTransitionf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrInvalidTransition, args)...)
}

func UnknownEntityf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrUnknownEntity, args)...)
}

func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, prepend(ErrValidation, args)...)
}

func prepend(err error, args []interface{}) []interface{} {
	return append([]interface{}{err}, args...)
}
