// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Railfan3/RevenueRadar/internal/models"
	"github.com/Railfan3/RevenueRadar/internal/repository"
	"github.com/vinovest/sqlx"
)

// Users implements repository.Users on SQLite.
type Users struct {
	db *sqlx.DB
}

// NewUsers creates the credential store backed by db.
func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

// Create inserts a new user inside a transaction so the uniqueness checks
// and the insert are atomic.
func (u *Users) Create(ctx context.Context, username, passwordHash, email string) (*models.User, error) {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE username = ?`, username); err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, repository.ErrDuplicateUsername
	}
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE email = ?`, email); err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, repository.ErrDuplicateEmail
	}

	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		Verified:     true,
		CreatedAt:    time.Now(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, email, verified, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.Username, user.PasswordHash, user.Email, user.Verified, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return user, nil
}

// ByUsername retrieves a user by username.
func (u *Users) ByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := u.db.GetContext(ctx, &user,
		`SELECT username, password_hash, email, verified, created_at, last_login FROM users WHERE username = ?`,
		username)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// ByEmail retrieves a user by email.
func (u *Users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := u.db.GetContext(ctx, &user,
		`SELECT username, password_hash, email, verified, created_at, last_login FROM users WHERE email = ?`,
		email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// TouchLastLogin sets last_login to now for an existing user.
func (u *Users) TouchLastLogin(ctx context.Context, username string) error {
	res, err := u.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE username = ?`, time.Now(), username)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// wrapError converts database/sql errors to repository errors.
func wrapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
