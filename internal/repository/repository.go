// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package repository defines the storage contracts for the credential
// store and the OTP ledger. Two implementations exist: jsonfile (flat
// JSON documents, full rewrite per mutation) and sqlite (transactional).
package repository

import (
	"context"
	"errors"

	"github.com/Railfan3/RevenueRadar/internal/models"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Users is the credential store. Lookups are case-sensitive exact matches
// on the stored strings.
type Users interface {
	// Create inserts a new user with Verified=true and CreatedAt=now.
	// Fails with ErrDuplicateUsername or ErrDuplicateEmail.
	Create(ctx context.Context, username, passwordHash, email string) (*models.User, error)
	ByUsername(ctx context.Context, username string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	// TouchLastLogin sets LastLogin=now for an existing user.
	TouchLastLogin(ctx context.Context, username string) error
}

// Challenges is the OTP ledger. It exclusively owns challenge lifetime;
// callers must re-fetch before every decision and never cache entries,
// since the persisted set may be rewritten between calls.
type Challenges interface {
	// Put overwrites any existing challenge for identifier.
	Put(ctx context.Context, identifier string, ch *models.Challenge) error
	Get(ctx context.Context, identifier string) (*models.Challenge, error)
	Remove(ctx context.Context, identifier string) error
}

// Repository bundles the two stores a backend provides.
type Repository struct {
	Users      Users
	Challenges Challenges
}
