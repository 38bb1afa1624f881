package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrSelfReference      = errors.New("cannot reference yourself")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPersistence        = errors.New("storage failure")
)

// ValidationError is a user-facing input problem. Message is safe to render.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// IsUserFacing reports whether err carries a message that can be shown as is.
func IsUserFacing(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
