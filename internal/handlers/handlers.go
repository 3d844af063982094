// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains all HTTP handlers.
package handlers

import (
	"net/http"

	"github.com/Railfan3/RevenueRadar/internal/services/session"
	"github.com/labstack/echo/v4"
)

// sessionKey is the echo context key the session is stored under by
// RequireSession.
const sessionKey = "session"

// Handlers contains the plain service handlers.
type Handlers struct{}

// New creates a new Handlers instance.
func New() *Handlers {
	return &Handlers{}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// RequireSession rejects requests without a valid session cookie and
// stores the session in the echo context for downstream handlers.
func RequireSession(sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := sessions.Get(c)
			if s == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			}
			c.Set(sessionKey, s)
			return next(c)
		}
	}
}

// currentSession returns the session stored by RequireSession, or nil.
func currentSession(c echo.Context) *session.Session {
	s, _ := c.Get(sessionKey).(*session.Session)
	return s
}
