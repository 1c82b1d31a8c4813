package auth

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/hongminglow/taskql/internal/models/dto"
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes; reject instead of truncating.
	maxPasswordBytes = 72
)

// NormalizeEmail trims and lower-cases an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(req dto.RegisterRequest) error {
	if strings.TrimSpace(req.Firstname) == "" {
		return &ValidationError{Field: "firstname", Message: "is required"}
	}
	if strings.TrimSpace(req.Lastname) == "" {
		return &ValidationError{Field: "lastname", Message: "is required"}
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	return validatePassword(req.Password)
}

func validateEmail(email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Message: "is not a valid address"}
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return &ValidationError{Field: "password", Message: "must not be empty"}
	}
	if !utf8.ValidString(password) || utf8.RuneCountInString(password) < minPasswordLength {
		return &ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}
	if len(password) > maxPasswordBytes {
		return &ValidationError{Field: "password", Message: "must be at most 72 bytes"}
	}
	return nil
}
