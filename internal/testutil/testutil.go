// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/Railfan3/RevenueRadar/internal/models"
	"github.com/Railfan3/RevenueRadar/internal/repository"
	"github.com/Railfan3/RevenueRadar/internal/repository/jsonfile"
	"github.com/Railfan3/RevenueRadar/internal/services/auth"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// NewTestRepository creates a flat-file repository in a temp directory.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()
	store, err := jsonfile.Open(t.TempDir())
	require.NoError(t, err)
	return jsonfile.NewRepository(store)
}

// NewTestUser creates a test user with a hashed default password.
func NewTestUser(t *testing.T, repo *repository.Repository, username, email string) *models.User {
	t.Helper()
	user, err := repo.Users.Create(context.Background(), username, auth.HashPassword("Sup3r$ecret"), email)
	require.NoError(t, err)
	return user
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
