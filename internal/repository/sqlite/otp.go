// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sqlite

import (
	"context"

	"github.com/Railfan3/RevenueRadar/internal/models"
	"github.com/vinovest/sqlx"
)

// Challenges implements repository.Challenges on SQLite.
type Challenges struct {
	db *sqlx.DB
}

// NewChallenges creates the OTP ledger backed by db.
func NewChallenges(db *sqlx.DB) *Challenges {
	return &Challenges{db: db}
}

// Put overwrites any existing challenge for identifier.
func (c *Challenges) Put(ctx context.Context, identifier string, ch *models.Challenge) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO otp_challenges (identifier, code, purpose, expires_at, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(identifier) DO UPDATE SET
		   code = excluded.code,
		   purpose = excluded.purpose,
		   expires_at = excluded.expires_at,
		   attempts = excluded.attempts,
		   created_at = excluded.created_at`,
		identifier, ch.Code, ch.Purpose, ch.ExpiresAt, ch.Attempts, ch.CreatedAt)
	return err
}

// Get loads the challenge for identifier.
func (c *Challenges) Get(ctx context.Context, identifier string) (*models.Challenge, error) {
	var ch models.Challenge
	err := c.db.GetContext(ctx, &ch,
		`SELECT code, purpose, expires_at, attempts, created_at FROM otp_challenges WHERE identifier = ?`,
		identifier)
	if err != nil {
		return nil, wrapError(err)
	}
	return &ch, nil
}

// Remove deletes the challenge for identifier if present.
func (c *Challenges) Remove(ctx context.Context, identifier string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE identifier = ?`, identifier)
	return err
}
