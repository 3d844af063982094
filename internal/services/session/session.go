// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session issues and validates signed session cookies. The core
// auth flows only report a successful login; opening and closing the
// session is this package's job, driven by the HTTP layer.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Railfan3/RevenueRadar/internal/config"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
)

// Session is the payload carried by the session cookie.
type Session struct {
	Username string    `json:"username"`
	IssuedAt time.Time `json:"issued_at"`
}

// Manager encodes and decodes session cookies.
type Manager struct {
	codec      *securecookie.SecureCookie
	cookieName string
	maxAge     int
	secure     bool
}

// NewManager creates a session manager from config. Missing keys are
// generated at random, which invalidates sessions across restarts; fine
// for development, configure stable keys in production.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	hashKey, err := keyFromHex(cfg.HashKey, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid session hash key: %w", err)
	}

	var blockKey []byte
	if cfg.BlockKey != "" {
		blockKey, err = keyFromHex(cfg.BlockKey, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid session block key: %w", err)
		}
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(cfg.MaxAge)

	return &Manager{
		codec:      codec,
		cookieName: cfg.CookieName,
		maxAge:     cfg.MaxAge,
		secure:     secure,
	}, nil
}

// keyFromHex decodes a hex key, or generates a random one when empty.
func keyFromHex(s string, size int) ([]byte, error) {
	if s == "" {
		key := make([]byte, size)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		slog.Warn("session key not configured, generated a volatile one")
		return key, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != size {
		return nil, fmt.Errorf("key must be %d bytes, got %d", size, len(key))
	}
	return key, nil
}

// Open sets a session cookie for username on the response.
func (m *Manager) Open(c echo.Context, username string) error {
	session := &Session{
		Username: username,
		IssuedAt: time.Now(),
	}
	encoded, err := m.codec.Encode(m.cookieName, session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   m.maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Get returns the session from the request cookie, or nil when there is
// no valid session.
func (m *Manager) Get(c echo.Context) *Session {
	cookie, err := c.Cookie(m.cookieName)
	if err != nil {
		return nil
	}

	var session Session
	if err := m.codec.Decode(m.cookieName, cookie.Value, &session); err != nil {
		return nil
	}
	return &session
}

// Close expires the session cookie.
func (m *Manager) Close(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
