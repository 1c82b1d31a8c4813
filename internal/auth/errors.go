package auth

import (
	"errors"
	"fmt"
)

// Token verification failures.
var (
	ErrMalformedToken = errors.New("token malformed")
	ErrBadSignature   = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
)

// Caller-facing failures.
var (
	// ErrBadCredentials covers both an unknown email and a wrong password.
	ErrBadCredentials = errors.New("invalid credentials")
	ErrUnauthorized   = errors.New("authentication required")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Configuration failures.
var (
	ErrSecretTooShort = errors.New("signing secret too short")
	ErrInvalidCost    = errors.New("hash work factor out of range")
)

// ValidationError reports malformed input. It is returned before any store access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
