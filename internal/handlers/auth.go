// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Railfan3/RevenueRadar/internal/repository"
	"github.com/Railfan3/RevenueRadar/internal/services/auth"
	"github.com/Railfan3/RevenueRadar/internal/services/otp"
	"github.com/Railfan3/RevenueRadar/internal/services/session"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains handlers for the registration and login flows.
type AuthHandlers struct {
	svc      *auth.Service
	flows    *auth.FlowStore
	sessions *session.Manager
	repo     *repository.Repository
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(svc *auth.Service, flows *auth.FlowStore, sessions *session.Manager, repo *repository.Repository) *AuthHandlers {
	return &AuthHandlers{
		svc:      svc,
		flows:    flows,
		sessions: sessions,
		repo:     repo,
	}
}

// issueResponse is the common response for any step that sends a code.
// DemoCode is only set when delivery is not configured or failed, so the
// client can surface the code in-app.
type issueResponse struct {
	FlowID    string `json:"flow_id"`
	Delivered bool   `json:"delivered"`
	DemoCode  string `json:"demo_code,omitempty"`
}

func newIssueResponse(flowID string, result *otp.IssueResult) issueResponse {
	resp := issueResponse{FlowID: flowID, Delivered: result.Delivered}
	if !result.Delivered {
		resp.DemoCode = result.Code
	}
	return resp
}

// RegisterBeginRequest is the request body for starting registration.
type RegisterBeginRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// RegisterBegin validates the registration details and sends a
// verification code to the given email.
func (h *AuthHandlers) RegisterBegin(c echo.Context) error {
	var req RegisterBeginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	flow := h.svc.NewRegistration()
	result, err := h.svc.SubmitDetails(c.Request().Context(), flow, auth.DetailsParams{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return serviceError(c, err)
	}

	flowID := h.flows.PutRegistration(flow)
	return c.JSON(http.StatusOK, newIssueResponse(flowID, result))
}

// VerifyRequest is the request body for submitting a code.
type VerifyRequest struct {
	FlowID string `json:"flow_id"`
	Code   string `json:"code"`
}

// FlowRequest identifies an in-progress flow.
type FlowRequest struct {
	FlowID string `json:"flow_id"`
}

// RegisterVerify checks the submitted code and creates the account.
func (h *AuthHandlers) RegisterVerify(c echo.Context) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	flow := h.flows.Registration(req.FlowID)
	if flow == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown_flow"})
	}

	user, err := h.svc.VerifyRegistration(c.Request().Context(), flow, req.Code)
	if err != nil {
		return serviceError(c, err)
	}

	h.flows.DropRegistration(req.FlowID)
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "registered",
		"username": user.Username,
	})
}

// RegisterResend sends a fresh code for a pending registration.
func (h *AuthHandlers) RegisterResend(c echo.Context) error {
	var req FlowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	flow := h.flows.Registration(req.FlowID)
	if flow == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown_flow"})
	}

	result, err := h.svc.ResendRegistration(c.Request().Context(), flow)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, newIssueResponse(req.FlowID, result))
}

// RegisterAbandon discards a pending registration.
func (h *AuthHandlers) RegisterAbandon(c echo.Context) error {
	var req FlowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if flow := h.flows.Registration(req.FlowID); flow != nil {
		h.svc.AbandonRegistration(flow)
		h.flows.DropRegistration(req.FlowID)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// LoginBeginRequest is the request body for starting a login.
type LoginBeginRequest struct {
	Identifier string `json:"identifier"`
}

// LoginBegin resolves the identifier and sends a login code to the
// account's email.
func (h *AuthHandlers) LoginBegin(c echo.Context) error {
	var req LoginBeginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	flow := h.svc.NewLogin()
	result, err := h.svc.SubmitIdentifier(c.Request().Context(), flow, req.Identifier)
	if err != nil {
		return serviceError(c, err)
	}

	flowID := h.flows.PutLogin(flow)
	return c.JSON(http.StatusOK, newIssueResponse(flowID, result))
}

// LoginVerify checks the submitted code and opens a session.
func (h *AuthHandlers) LoginVerify(c echo.Context) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	flow := h.flows.Login(req.FlowID)
	if flow == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown_flow"})
	}

	user, err := h.svc.VerifyLogin(c.Request().Context(), flow, req.Code)
	if err != nil {
		return serviceError(c, err)
	}

	if err := h.sessions.Open(c, user.Username); err != nil {
		slog.Error("session_open_failed", "error", err, "username", user.Username)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
	}

	h.flows.DropLogin(req.FlowID)
	return c.JSON(http.StatusOK, map[string]any{
		"status":     "logged_in",
		"username":   user.Username,
		"last_login": user.LastLogin,
	})
}

// LoginResend sends a fresh code for a pending login.
func (h *AuthHandlers) LoginResend(c echo.Context) error {
	var req FlowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	flow := h.flows.Login(req.FlowID)
	if flow == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown_flow"})
	}

	result, err := h.svc.ResendLogin(c.Request().Context(), flow)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, newIssueResponse(req.FlowID, result))
}

// LoginBack abandons the OTP step and returns to the identifier form.
func (h *AuthHandlers) LoginBack(c echo.Context) error {
	var req FlowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if flow := h.flows.Login(req.FlowID); flow != nil {
		h.svc.BackToCredentials(flow)
		h.flows.DropLogin(req.FlowID)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// PasswordPolicy lists the password requirements for display next to the
// registration form.
func (h *AuthHandlers) PasswordPolicy(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"requirements": h.svc.PasswordValidator().GetHelpTexts(),
	})
}

// Logout clears the session cookie.
func (h *AuthHandlers) Logout(c echo.Context) error {
	h.sessions.Close(c)
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Me returns the account behind the current session.
func (h *AuthHandlers) Me(c echo.Context) error {
	s := currentSession(c)
	if s == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
	}

	user, err := h.repo.Users.ByUsername(c.Request().Context(), s.Username)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "account no longer exists"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"username":   user.Username,
		"email":      user.Email,
		"verified":   user.Verified,
		"last_login": user.LastLogin,
	})
}
