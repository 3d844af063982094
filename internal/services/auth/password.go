// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"fmt"
	"strings"
	"unicode"
)

// SpecialChars is the punctuation set accepted by the strength policy.
const SpecialChars = `!@#$%^&*(),.?":{}|<>`

// PasswordValidator validates passwords against the strength policy.
type PasswordValidator struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
	RequireSpecial   bool
}

// DefaultPasswordValidator returns the registration policy: at least
// eight characters with one uppercase, one lowercase, one digit and one
// special character.
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
		RequireSpecial:   true,
	}
}

// ValidationError represents a single password validation error.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// PasswordValidationError wraps multiple validation errors.
type PasswordValidationError struct {
	Errors []ValidationError
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return e.Errors[0].Message
}

// Messages returns all error messages.
func (e *PasswordValidationError) Messages() []string {
	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Message
	}
	return messages
}

// ValidationResult holds all validation errors.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Validate checks a password against the configured policy.
func (v *PasswordValidator) Validate(password string) ValidationResult {
	var errors []ValidationError

	if len(password) < v.MinLength {
		errors = append(errors, ValidationError{
			Code:    "min_length",
			Message: fmt.Sprintf("Password must be at least %d characters long.", v.MinLength),
		})
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(SpecialChars, r):
			hasSpecial = true
		}
	}

	if v.RequireUppercase && !hasUpper {
		errors = append(errors, ValidationError{
			Code:    "no_uppercase",
			Message: "Password must contain at least one uppercase letter.",
		})
	}

	if v.RequireLowercase && !hasLower {
		errors = append(errors, ValidationError{
			Code:    "no_lowercase",
			Message: "Password must contain at least one lowercase letter.",
		})
	}

	if v.RequireDigit && !hasDigit {
		errors = append(errors, ValidationError{
			Code:    "no_digit",
			Message: "Password must contain at least one digit.",
		})
	}

	if v.RequireSpecial && !hasSpecial {
		errors = append(errors, ValidationError{
			Code:    "no_special",
			Message: fmt.Sprintf("Password must contain at least one special character (%s).", SpecialChars),
		})
	}

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

// GetHelpTexts returns help texts for password requirements.
func (v *PasswordValidator) GetHelpTexts() []string {
	var texts []string

	texts = append(texts, fmt.Sprintf("At least %d characters", v.MinLength))

	if v.RequireUppercase {
		texts = append(texts, "At least one uppercase letter")
	}
	if v.RequireLowercase {
		texts = append(texts, "At least one lowercase letter")
	}
	if v.RequireDigit {
		texts = append(texts, "At least one digit")
	}
	if v.RequireSpecial {
		texts = append(texts, fmt.Sprintf("At least one special character (%s)", SpecialChars))
	}

	return texts
}
