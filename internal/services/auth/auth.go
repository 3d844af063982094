// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements the registration and login flow controllers on
// top of the credential store and the OTP service.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"

	"github.com/Railfan3/RevenueRadar/internal/repository"
	"github.com/Railfan3/RevenueRadar/internal/services/otp"
)

var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrMissingFields    = errors.New("all fields are required")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrNoSuchAccount    = errors.New("no account found for this identifier")
	ErrInvalidStep      = errors.New("action not valid in the current step")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// HashPassword returns the hex-encoded SHA-256 digest of password. The
// digest is deterministic, which the stored record format relies on.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Service sequences the two-step registration and login flows.
type Service struct {
	repo              *repository.Repository
	otp               *otp.Service
	passwordValidator *PasswordValidator
}

// NewService creates the auth flow service.
func NewService(repo *repository.Repository, otpService *otp.Service) *Service {
	return &Service{
		repo:              repo,
		otp:               otpService,
		passwordValidator: DefaultPasswordValidator(),
	}
}

// PasswordValidator returns the active password policy for display.
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}
