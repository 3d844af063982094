// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

// User is a credential record. Users are keyed by username in the users
// document and the email is unique across all records as well. A record
// only comes into existence after a successful registration OTP, so
// Verified is always true for stored users.
type User struct {
	Username     string     `json:"-" db:"username"`
	PasswordHash string     `json:"password" db:"password_hash"`
	Email        string     `json:"email" db:"email"`
	Verified     bool       `json:"verified" db:"verified"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastLogin    *time.Time `json:"last_login" db:"last_login"`
}
