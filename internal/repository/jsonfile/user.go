// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package jsonfile

import (
	"context"
	"time"

	"github.com/Railfan3/RevenueRadar/internal/models"
	"github.com/Railfan3/RevenueRadar/internal/repository"
)

// Users implements repository.Users over the users document.
type Users struct {
	store *Store
}

// NewUsers creates the credential store backed by s.
func NewUsers(s *Store) *Users {
	return &Users{store: s}
}

func (u *Users) load() (map[string]*models.User, error) {
	doc := make(map[string]*models.User)
	if err := loadDocument(u.store.usersPath, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Create inserts a new user. The whole document is rewritten on success.
func (u *Users) Create(ctx context.Context, username, passwordHash, email string) (*models.User, error) {
	u.store.usersMu.Lock()
	defer u.store.usersMu.Unlock()

	doc, err := u.load()
	if err != nil {
		return nil, err
	}
	if _, ok := doc[username]; ok {
		return nil, repository.ErrDuplicateUsername
	}
	for _, existing := range doc {
		if existing.Email == email {
			return nil, repository.ErrDuplicateEmail
		}
	}

	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		Verified:     true,
		CreatedAt:    time.Now(),
	}
	doc[username] = user

	if err := saveDocument(u.store.usersPath, doc); err != nil {
		return nil, err
	}
	return user, nil
}

// ByUsername retrieves a user by username.
func (u *Users) ByUsername(ctx context.Context, username string) (*models.User, error) {
	u.store.usersMu.Lock()
	defer u.store.usersMu.Unlock()

	doc, err := u.load()
	if err != nil {
		return nil, err
	}
	user, ok := doc[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user.Username = username
	return user, nil
}

// ByEmail retrieves a user by email. Linear scan over the document.
func (u *Users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	u.store.usersMu.Lock()
	defer u.store.usersMu.Unlock()

	doc, err := u.load()
	if err != nil {
		return nil, err
	}
	for username, user := range doc {
		if user.Email == email {
			user.Username = username
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

// TouchLastLogin sets LastLogin to now for an existing user.
func (u *Users) TouchLastLogin(ctx context.Context, username string) error {
	u.store.usersMu.Lock()
	defer u.store.usersMu.Unlock()

	doc, err := u.load()
	if err != nil {
		return err
	}
	user, ok := doc[username]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	user.LastLogin = &now

	return saveDocument(u.store.usersPath, doc)
}
