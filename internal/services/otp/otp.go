// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp issues and verifies one-time passwords. Challenges live in
// the OTP ledger; this package never holds its own copy across calls and
// reloads the authoritative state for every decision, so it tolerates
// other processes rewriting the persisted store between calls.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/Railfan3/RevenueRadar/internal/models"
	"github.com/Railfan3/RevenueRadar/internal/repository"
)

// MaxAttempts is the number of wrong codes a challenge survives.
const MaxAttempts = 3

// DefaultSendTimeout bounds a single delivery attempt.
const DefaultSendTimeout = 10 * time.Second

var (
	// ErrChallengeNotFound is returned when no challenge exists for the identifier.
	ErrChallengeNotFound = errors.New("no OTP found, request a new one")
	// ErrChallengeExpired is returned when the challenge deadline has passed.
	ErrChallengeExpired = errors.New("OTP has expired, request a new one")
	// ErrTooManyAttempts is returned when the attempt cap is exhausted.
	ErrTooManyAttempts = errors.New("too many failed attempts, request a new OTP")
	// ErrPurposeMismatch is returned when the challenge was issued for a
	// different operation than the one being verified.
	ErrPurposeMismatch = errors.New("OTP not valid for this operation")
	// ErrIncorrectCode is the base error wrapped by IncorrectCodeError.
	ErrIncorrectCode = errors.New("incorrect OTP")
)

// IncorrectCodeError reports a wrong guess and how many tries remain.
type IncorrectCodeError struct {
	Remaining int
}

func (e *IncorrectCodeError) Error() string {
	return fmt.Sprintf("incorrect OTP, %d attempts remaining", e.Remaining)
}

func (e *IncorrectCodeError) Unwrap() error {
	return ErrIncorrectCode
}

// Notifier delivers an issued code to the user. Its transport is not this
// package's concern; failures are surfaced but never roll back the ledger.
type Notifier interface {
	Send(ctx context.Context, recipientEmail, code string, purpose models.Purpose) error
	// Configured reports whether delivery is set up at all. An
	// unconfigured notifier means every issue falls back to in-app display.
	Configured() bool
}

// IssueResult carries the outcome of issuing a challenge. Code is always
// set; callers surface it to the user when Delivered is false.
type IssueResult struct {
	Code      string
	Delivered bool
	// DeliveryError holds the send failure, if any, for operator logs.
	DeliveryError error
}

// Service is the OTP issuer and verification engine.
type Service struct {
	challenges repository.Challenges
	notifier   Notifier

	// SendTimeout caps how long a single delivery may take before the
	// issue falls back to in-app display of the code.
	SendTimeout time.Duration
}

// NewService creates the OTP service.
func NewService(challenges repository.Challenges, notifier Notifier) *Service {
	return &Service{
		challenges:  challenges,
		notifier:    notifier,
		SendTimeout: DefaultSendTimeout,
	}
}

// GenerateCode draws a uniformly random code in [100000, 999999]. The
// range starts at 100000 so codes are always exactly six digits.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// Issue creates a fresh challenge for identifier, overwriting any live
// one, and hands the code to the notifier addressed at recipientEmail.
// Delivery runs under SendTimeout. Neither a send failure nor a timeout
// invalidates the challenge; the result then carries the code for
// fallback display.
func (s *Service) Issue(ctx context.Context, identifier, recipientEmail string, purpose models.Purpose) (*IssueResult, error) {
	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ch := &models.Challenge{
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(purpose.TTL()),
		CreatedAt: now,
	}
	if err := s.challenges.Put(ctx, identifier, ch); err != nil {
		return nil, fmt.Errorf("failed to store OTP: %w", err)
	}

	slog.Info("otp_issued", "identifier", identifier, "purpose", purpose, "expires_at", ch.ExpiresAt)

	result := &IssueResult{Code: code}
	if !s.notifier.Configured() {
		return result, nil
	}

	// A stalled SMTP conversation must not hang the request.
	sendCtx, cancel := context.WithTimeout(ctx, s.SendTimeout)
	defer cancel()
	if err := s.notifier.Send(sendCtx, recipientEmail, code, purpose); err != nil {
		slog.Warn("otp_delivery_failed", "identifier", identifier, "error", err)
		result.DeliveryError = err
		return result, nil
	}

	result.Delivered = true
	return result, nil
}

// Verify checks submittedCode against the freshly loaded challenge for
// identifier. The rules apply strictly in order: missing, expired,
// attempt cap, purpose, match. Expiry, cap exhaustion and success all
// consume the challenge; a purpose mismatch leaves it intact so the
// caller can retry under the correct purpose.
func (s *Service) Verify(ctx context.Context, identifier, submittedCode string, expectedPurpose models.Purpose) error {
	ch, err := s.challenges.Get(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChallengeNotFound
		}
		return fmt.Errorf("failed to load OTP: %w", err)
	}

	if ch.Expired(time.Now()) {
		if err := s.challenges.Remove(ctx, identifier); err != nil {
			return fmt.Errorf("failed to remove expired OTP: %w", err)
		}
		return ErrChallengeExpired
	}

	if ch.Attempts >= MaxAttempts {
		if err := s.challenges.Remove(ctx, identifier); err != nil {
			return fmt.Errorf("failed to remove exhausted OTP: %w", err)
		}
		return ErrTooManyAttempts
	}

	if ch.Purpose != expectedPurpose {
		return ErrPurposeMismatch
	}

	if ch.Code == submittedCode {
		if err := s.challenges.Remove(ctx, identifier); err != nil {
			return fmt.Errorf("failed to consume OTP: %w", err)
		}
		slog.Info("otp_verified", "identifier", identifier, "purpose", expectedPurpose)
		return nil
	}

	ch.Attempts++
	if ch.Attempts >= MaxAttempts {
		if err := s.challenges.Remove(ctx, identifier); err != nil {
			return fmt.Errorf("failed to remove exhausted OTP: %w", err)
		}
		slog.Warn("otp_attempts_exhausted", "identifier", identifier)
		return ErrTooManyAttempts
	}
	if err := s.challenges.Put(ctx, identifier, ch); err != nil {
		return fmt.Errorf("failed to record OTP attempt: %w", err)
	}
	return &IncorrectCodeError{Remaining: MaxAttempts - ch.Attempts}
}
