// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Railfan3/RevenueRadar/internal/models"
	"github.com/Railfan3/RevenueRadar/internal/repository"
	"github.com/Railfan3/RevenueRadar/internal/services/otp"
)

// Step names the state a flow is in. Each flow is a two-state machine:
// collect input, then wait for the OTP.
type Step string

const (
	StepDetails     Step = "details"
	StepCredentials Step = "credentials"
	StepOTP         Step = "otp"
)

// Registration is the per-flow context of an in-progress registration.
// The pending tuple is buffered here and only committed to the credential
// store once the OTP verifies.
type Registration struct {
	Step       Step
	Identifier string
	pending    *pendingRegistration
}

type pendingRegistration struct {
	username string
	email    string
	password string
}

// Login is the per-flow context of an in-progress login. Identifier is
// the string the user typed (username or email); username is the
// resolved account it belongs to.
type Login struct {
	Step       Step
	Identifier string
	username   string
	email      string
}

// NewRegistration starts a registration flow at the details step.
func (s *Service) NewRegistration() *Registration {
	return &Registration{Step: StepDetails}
}

// NewLogin starts a login flow at the credentials step.
func (s *Service) NewLogin() *Login {
	return &Login{Step: StepCredentials}
}

// DetailsParams is the input of the registration details step.
type DetailsParams struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// SubmitDetails validates the registration input, buffers the pending
// tuple and issues a registration OTP keyed by the email. On success the
// flow moves to the OTP step.
func (s *Service) SubmitDetails(ctx context.Context, r *Registration, params DetailsParams) (*otp.IssueResult, error) {
	if r.Step != StepDetails {
		return nil, ErrInvalidStep
	}
	if params.Username == "" || params.Email == "" || params.Password == "" || params.ConfirmPassword == "" {
		return nil, ErrMissingFields
	}
	if !ValidEmail(params.Email) {
		return nil, ErrInvalidEmail
	}
	if params.Password != params.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if validation := s.passwordValidator.Validate(params.Password); !validation.Valid {
		return nil, &PasswordValidationError{Errors: validation.Errors}
	}

	// Uniqueness checks happen before any OTP is issued.
	if _, err := s.repo.Users.ByUsername(ctx, params.Username); err == nil {
		return nil, repository.ErrDuplicateUsername
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.repo.Users.ByEmail(ctx, params.Email); err == nil {
		return nil, repository.ErrDuplicateEmail
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	result, err := s.otp.Issue(ctx, params.Email, params.Email, models.PurposeRegistration)
	if err != nil {
		return nil, err
	}

	r.pending = &pendingRegistration{
		username: params.Username,
		email:    params.Email,
		password: params.Password,
	}
	r.Identifier = params.Email
	r.Step = StepOTP

	slog.Info("registration_otp_pending", "username", params.Username, "email", params.Email)
	return result, nil
}

// VerifyRegistration checks the submitted code and, on success, commits
// the buffered tuple to the credential store and resets the flow. On
// failure the flow stays at the OTP step so the user can retry.
func (s *Service) VerifyRegistration(ctx context.Context, r *Registration, code string) (*models.User, error) {
	if r.Step != StepOTP || r.pending == nil {
		return nil, ErrInvalidStep
	}

	if err := s.otp.Verify(ctx, r.Identifier, code, models.PurposeRegistration); err != nil {
		return nil, err
	}

	user, err := s.repo.Users.Create(ctx, r.pending.username, HashPassword(r.pending.password), r.pending.email)
	if err != nil {
		return nil, err
	}

	slog.Info("registration_complete", "username", user.Username)
	r.Step = StepDetails
	r.Identifier = ""
	r.pending = nil
	return user, nil
}

// ResendRegistration issues a fresh registration OTP for the buffered
// email without changing the flow state.
func (s *Service) ResendRegistration(ctx context.Context, r *Registration) (*otp.IssueResult, error) {
	if r.Step != StepOTP || r.pending == nil {
		return nil, ErrInvalidStep
	}
	return s.otp.Issue(ctx, r.Identifier, r.pending.email, models.PurposeRegistration)
}

// AbandonRegistration discards the buffered tuple and returns the flow to
// the details step.
func (s *Service) AbandonRegistration(r *Registration) {
	r.Step = StepDetails
	r.Identifier = ""
	r.pending = nil
}

// SubmitIdentifier resolves the login identifier (username or email) to
// an account and issues a login OTP keyed by the identifier exactly as
// typed. The code is delivered to the resolved account email.
func (s *Service) SubmitIdentifier(ctx context.Context, l *Login, identifier string) (*otp.IssueResult, error) {
	if l.Step != StepCredentials {
		return nil, ErrInvalidStep
	}
	if identifier == "" {
		return nil, ErrMissingFields
	}

	var user *models.User
	var err error
	if ValidEmail(identifier) {
		user, err = s.repo.Users.ByEmail(ctx, identifier)
	} else {
		user, err = s.repo.Users.ByUsername(ctx, identifier)
	}
	if err != nil {
		if isNotFound(err) {
			slog.Warn("login_failed", "identifier", identifier, "reason", "no_such_account")
			return nil, ErrNoSuchAccount
		}
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}

	result, err := s.otp.Issue(ctx, identifier, user.Email, models.PurposeLogin)
	if err != nil {
		return nil, err
	}

	l.Identifier = identifier
	l.username = user.Username
	l.email = user.Email
	l.Step = StepOTP

	slog.Info("login_otp_pending", "username", user.Username)
	return result, nil
}

// VerifyLogin checks the submitted code; on success the account's last
// login timestamp is touched and the resolved user is returned so the
// caller can open a session.
func (s *Service) VerifyLogin(ctx context.Context, l *Login, code string) (*models.User, error) {
	if l.Step != StepOTP {
		return nil, ErrInvalidStep
	}

	if err := s.otp.Verify(ctx, l.Identifier, code, models.PurposeLogin); err != nil {
		return nil, err
	}

	if err := s.repo.Users.TouchLastLogin(ctx, l.username); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	user, err := s.repo.Users.ByUsername(ctx, l.username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	slog.Info("login_success", "username", user.Username)
	l.Step = StepCredentials
	l.Identifier = ""
	return user, nil
}

// ResendLogin issues a fresh login OTP against the same identifier.
func (s *Service) ResendLogin(ctx context.Context, l *Login) (*otp.IssueResult, error) {
	if l.Step != StepOTP {
		return nil, ErrInvalidStep
	}
	return s.otp.Issue(ctx, l.Identifier, l.email, models.PurposeLogin)
}

// BackToCredentials abandons the OTP step of a login flow.
func (s *Service) BackToCredentials(l *Login) {
	l.Step = StepCredentials
	l.Identifier = ""
	l.username = ""
	l.email = ""
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
