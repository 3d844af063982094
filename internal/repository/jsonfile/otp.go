// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package jsonfile

import (
	"context"

	"github.com/Railfan3/RevenueRadar/internal/models"
	"github.com/Railfan3/RevenueRadar/internal/repository"
)

// Challenges implements repository.Challenges over the OTP document.
type Challenges struct {
	store *Store
}

// NewChallenges creates the OTP ledger backed by s.
func NewChallenges(s *Store) *Challenges {
	return &Challenges{store: s}
}

func (c *Challenges) load() (map[string]*models.Challenge, error) {
	doc := make(map[string]*models.Challenge)
	if err := loadDocument(c.store.otpPath, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Put overwrites any existing challenge for identifier.
func (c *Challenges) Put(ctx context.Context, identifier string, ch *models.Challenge) error {
	c.store.otpMu.Lock()
	defer c.store.otpMu.Unlock()

	doc, err := c.load()
	if err != nil {
		return err
	}
	doc[identifier] = ch
	return saveDocument(c.store.otpPath, doc)
}

// Get loads the challenge for identifier from the persisted set.
func (c *Challenges) Get(ctx context.Context, identifier string) (*models.Challenge, error) {
	c.store.otpMu.Lock()
	defer c.store.otpMu.Unlock()

	doc, err := c.load()
	if err != nil {
		return nil, err
	}
	ch, ok := doc[identifier]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ch, nil
}

// Remove deletes the challenge for identifier. Removing an absent entry
// is not an error.
func (c *Challenges) Remove(ctx context.Context, identifier string) error {
	c.store.otpMu.Lock()
	defer c.store.otpMu.Unlock()

	doc, err := c.load()
	if err != nil {
		return err
	}
	if _, ok := doc[identifier]; !ok {
		return nil
	}
	delete(doc, identifier)
	return saveDocument(c.store.otpPath, doc)
}
