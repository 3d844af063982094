// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Purpose scopes an OTP challenge to the operation it was issued for.
type Purpose string

const (
	PurposeRegistration Purpose = "registration"
	PurposeLogin        Purpose = "login"
)

// TTL returns how long a freshly issued challenge stays valid.
func (p Purpose) TTL() time.Duration {
	if p == PurposeLogin {
		return 5 * time.Minute
	}
	return 10 * time.Minute
}

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeRegistration || p == PurposeLogin
}

// Challenge is a pending OTP, keyed by identifier (the email or username
// the user is acting under). At most one live challenge exists per
// identifier; issuing a new one overwrites the previous entry.
type Challenge struct {
	Code      string    `json:"otp" db:"code"`
	Purpose   Purpose   `json:"purpose" db:"purpose"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Attempts  int       `json:"attempts" db:"attempts"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the challenge is past its deadline at now.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
