package service

import (
	"errors"
	"fmt"

	"github.com/geocoder89/authhub/internal/domain/user"
)

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong
	// password at login, and a wrong current password on change.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStore              = errors.New("credential store failure")
)

// ValidationError is a rejected client input. Code is stable and safe to
// return to callers.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Code + ": " + e.Message
}

var (
	ErrMissingLoginFields = &ValidationError{Code: "missing_fields", Message: "Identifier and password are required."}
	ErrInvalidName        = &ValidationError{Code: "invalid_name", Message: "Name must not be empty."}
	ErrMissingPassword    = &ValidationError{Code: "missing_password", Message: "Current and new password are required."}
	ErrPasswordTooShort   = &ValidationError{Code: "password_too_short", Message: "New password must be at least 6 characters."}
	ErrPasswordTooLong    = &ValidationError{Code: "password_too_long", Message: "New password must be at most 72 bytes."}
	ErrPasswordUnchanged  = &ValidationError{Code: "password_unchanged", Message: "New password must differ from the current password."}
)

// storeErr leaves not-found untouched and tags everything else as a store failure.
func storeErr(op string, err error) error {
	if errors.Is(err, user.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
