// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Railfan3/RevenueRadar/internal/repository"
	"github.com/Railfan3/RevenueRadar/internal/services/auth"
	"github.com/Railfan3/RevenueRadar/internal/services/otp"
	"github.com/labstack/echo/v4"
)

// serviceError translates errors from the auth and OTP services into
// JSON responses. Anything unrecognized is logged and reported as a 500.
func serviceError(c echo.Context, err error) error {
	var pwErr *auth.PasswordValidationError
	if errors.As(err, &pwErr) {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error":    "weak_password",
			"messages": pwErr.Messages(),
		})
	}

	var incorrect *otp.IncorrectCodeError
	if errors.As(err, &incorrect) {
		return c.JSON(http.StatusUnauthorized, map[string]any{
			"error":              "incorrect_code",
			"remaining_attempts": incorrect.Remaining,
		})
	}

	switch {
	case errors.Is(err, auth.ErrMissingFields):
		return badRequest(c, "missing_fields", err)
	case errors.Is(err, auth.ErrInvalidEmail):
		return badRequest(c, "invalid_email", err)
	case errors.Is(err, auth.ErrPasswordMismatch):
		return badRequest(c, "password_mismatch", err)
	case errors.Is(err, auth.ErrInvalidStep):
		return badRequest(c, "invalid_step", err)
	case errors.Is(err, repository.ErrDuplicateUsername):
		return conflict(c, "duplicate_username", err)
	case errors.Is(err, repository.ErrDuplicateEmail):
		return conflict(c, "duplicate_email", err)
	case errors.Is(err, auth.ErrNoSuchAccount):
		return c.JSON(http.StatusNotFound, errorBody("no_such_account", err))
	case errors.Is(err, otp.ErrChallengeNotFound):
		return c.JSON(http.StatusUnauthorized, errorBody("code_not_found", err))
	case errors.Is(err, otp.ErrChallengeExpired):
		return c.JSON(http.StatusUnauthorized, errorBody("code_expired", err))
	case errors.Is(err, otp.ErrTooManyAttempts):
		return c.JSON(http.StatusUnauthorized, errorBody("too_many_attempts", err))
	case errors.Is(err, otp.ErrPurposeMismatch):
		return c.JSON(http.StatusUnauthorized, errorBody("purpose_mismatch", err))
	}

	slog.Error("unhandled_service_error", "error", err, "path", c.Path())
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func badRequest(c echo.Context, code string, err error) error {
	return c.JSON(http.StatusBadRequest, errorBody(code, err))
}

func conflict(c echo.Context, code string, err error) error {
	return c.JSON(http.StatusConflict, errorBody(code, err))
}

func errorBody(code string, err error) map[string]string {
	return map[string]string{
		"error":   code,
		"message": err.Error(),
	}
}
