// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// flowTTL bounds how long an untouched flow context is kept. It exceeds
// the longest OTP TTL so a slow user never loses a live challenge's flow.
const flowTTL = 30 * time.Minute

type flowEntry[T any] struct {
	flow     *T
	lastSeen time.Time
}

// FlowStore keeps in-progress flow contexts server-side, keyed by an
// opaque flow ID handed to the client. Stale entries are pruned lazily.
type FlowStore struct {
	mu            sync.Mutex
	registrations map[string]*flowEntry[Registration]
	logins        map[string]*flowEntry[Login]
}

// NewFlowStore creates an empty flow store.
func NewFlowStore() *FlowStore {
	return &FlowStore{
		registrations: make(map[string]*flowEntry[Registration]),
		logins:        make(map[string]*flowEntry[Login]),
	}
}

// PutRegistration stores a registration flow and returns its ID.
func (fs *FlowStore) PutRegistration(r *Registration) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.pruneLocked()

	id := uuid.NewString()
	fs.registrations[id] = &flowEntry[Registration]{flow: r, lastSeen: time.Now()}
	return id
}

// Registration returns the flow for id, or nil if unknown or expired.
func (fs *FlowStore) Registration(id string) *Registration {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.pruneLocked()

	entry, ok := fs.registrations[id]
	if !ok {
		return nil
	}
	entry.lastSeen = time.Now()
	return entry.flow
}

// DropRegistration removes a finished or abandoned registration flow.
func (fs *FlowStore) DropRegistration(id string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.registrations, id)
}

// PutLogin stores a login flow and returns its ID.
func (fs *FlowStore) PutLogin(l *Login) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.pruneLocked()

	id := uuid.NewString()
	fs.logins[id] = &flowEntry[Login]{flow: l, lastSeen: time.Now()}
	return id
}

// Login returns the flow for id, or nil if unknown or expired.
func (fs *FlowStore) Login(id string) *Login {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.pruneLocked()

	entry, ok := fs.logins[id]
	if !ok {
		return nil
	}
	entry.lastSeen = time.Now()
	return entry.flow
}

// DropLogin removes a finished or abandoned login flow.
func (fs *FlowStore) DropLogin(id string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.logins, id)
}

func (fs *FlowStore) pruneLocked() {
	cutoff := time.Now().Add(-flowTTL)
	for id, entry := range fs.registrations {
		if entry.lastSeen.Before(cutoff) {
			delete(fs.registrations, id)
		}
	}
	for id, entry := range fs.logins {
		if entry.lastSeen.Before(cutoff) {
			delete(fs.logins, id)
		}
	}
}
