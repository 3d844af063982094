// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Railfan3/RevenueRadar/internal/config"
	"github.com/Railfan3/RevenueRadar/internal/handlers"
	"github.com/Railfan3/RevenueRadar/internal/models"
	"github.com/Railfan3/RevenueRadar/internal/repository"
	"github.com/Railfan3/RevenueRadar/internal/services/auth"
	"github.com/Railfan3/RevenueRadar/internal/services/otp"
	"github.com/Railfan3/RevenueRadar/internal/services/session"
	"github.com/Railfan3/RevenueRadar/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noNotifier behaves like an unconfigured SMTP setup, so every issued
// code falls back to the demo_code field of the response.
type noNotifier struct{}

func (noNotifier) Send(_ context.Context, _, _ string, _ models.Purpose) error { return nil }
func (noNotifier) Configured() bool                                            { return false }

type fixture struct {
	e        *echo.Echo
	repo     *repository.Repository
	sessions *session.Manager
	auth     *handlers.AuthHandlers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := testutil.NewTestRepository(t)
	svc := auth.NewService(repo, otp.NewService(repo.Challenges, noNotifier{}))

	sessions, err := session.NewManager(&config.SessionConfig{
		CookieName: "_session",
		MaxAge:     3600,
		HashKey:    "000102030405060708090a0b0c0d0e0f000102030405060708090a0b0c0d0e0f",
	}, false)
	require.NoError(t, err)

	return &fixture{
		e:        echo.New(),
		repo:     repo,
		sessions: sessions,
		auth:     handlers.NewAuth(svc, auth.NewFlowStore(), sessions, repo),
	}
}

// call invokes handler with a JSON body and decodes the JSON response.
func (f *fixture) call(t *testing.T, handler echo.HandlerFunc, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	c, rec := testutil.NewEchoContext(f.e, http.MethodPost, "/", strings.NewReader(body))
	require.NoError(t, handler(c))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHealth(t *testing.T) {
	h := handlers.New()

	c, rec := testutil.NewEchoContext(echo.New(), http.MethodGet, "/health", nil)
	require.NoError(t, h.Health(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPasswordPolicy(t *testing.T) {
	f := newFixture(t)

	c, rec := testutil.NewEchoContext(f.e, http.MethodGet, "/auth/password-policy", nil)
	require.NoError(t, f.auth.PasswordPolicy(c))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["requirements"])
	assert.Contains(t, resp["requirements"][0], "8")
}

const registerBody = `{
	"username": "alice",
	"email": "alice@example.com",
	"password": "Sup3r$ecret",
	"confirm_password": "Sup3r$ecret"
}`

func TestRegistrationFlow(t *testing.T) {
	f := newFixture(t)

	rec, resp := f.call(t, f.auth.RegisterBegin, registerBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, resp["delivered"].(bool))

	flowID := resp["flow_id"].(string)
	code := resp["demo_code"].(string)
	require.NotEmpty(t, flowID)
	require.Len(t, code, 6)

	// A wrong guess costs an attempt but keeps the flow alive.
	rec, resp = f.call(t, f.auth.RegisterVerify, `{"flow_id":"`+flowID+`","code":"000000"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "incorrect_code", resp["error"])
	assert.Equal(t, float64(2), resp["remaining_attempts"])

	rec, resp = f.call(t, f.auth.RegisterVerify, `{"flow_id":"`+flowID+`","code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "registered", resp["status"])
	assert.Equal(t, "alice", resp["username"])

	user, err := f.repo.Users.ByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.Verified)

	// The flow is gone once the account exists.
	rec, resp = f.call(t, f.auth.RegisterVerify, `{"flow_id":"`+flowID+`","code":"`+code+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_flow", resp["error"])
}

func TestRegisterBeginRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing fields",
			body:     `{"username":"alice"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "missing_fields",
		},
		{
			name:     "invalid email",
			body:     `{"username":"alice","email":"not-an-email","password":"Sup3r$ecret","confirm_password":"Sup3r$ecret"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_email",
		},
		{
			name:     "password mismatch",
			body:     `{"username":"alice","email":"alice@example.com","password":"Sup3r$ecret","confirm_password":"Other$ecret1"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "password_mismatch",
		},
		{
			name:     "weak password",
			body:     `{"username":"alice","email":"alice@example.com","password":"weak","confirm_password":"weak"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "weak_password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := f.call(t, f.auth.RegisterBegin, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, resp["error"])
		})
	}
}

func TestRegisterBeginRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "alice", "alice@example.com")

	rec, resp := f.call(t, f.auth.RegisterBegin, registerBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_username", resp["error"])

	rec, resp = f.call(t, f.auth.RegisterBegin, `{
		"username": "alice2",
		"email": "alice@example.com",
		"password": "Sup3r$ecret",
		"confirm_password": "Sup3r$ecret"
	}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_email", resp["error"])
}

func TestRegisterResendInvalidatesOldCode(t *testing.T) {
	f := newFixture(t)

	rec, resp := f.call(t, f.auth.RegisterBegin, registerBody)
	require.Equal(t, http.StatusOK, rec.Code)
	flowID := resp["flow_id"].(string)

	rec, resp = f.call(t, f.auth.RegisterResend, `{"flow_id":"`+flowID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	newCode := resp["demo_code"].(string)
	require.Len(t, newCode, 6)

	rec, resp = f.call(t, f.auth.RegisterVerify, `{"flow_id":"`+flowID+`","code":"`+newCode+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "registered", resp["status"])
}

func TestRegisterAbandon(t *testing.T) {
	f := newFixture(t)

	rec, resp := f.call(t, f.auth.RegisterBegin, registerBody)
	require.Equal(t, http.StatusOK, rec.Code)
	flowID := resp["flow_id"].(string)
	code := resp["demo_code"].(string)

	rec, _ = f.call(t, f.auth.RegisterAbandon, `{"flow_id":"`+flowID+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = f.call(t, f.auth.RegisterVerify, `{"flow_id":"`+flowID+`","code":"`+code+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_flow", resp["error"])

	_, err := f.repo.Users.ByUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "alice", "alice@example.com")

	rec, resp := f.call(t, f.auth.LoginBegin, `{"identifier":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	flowID := resp["flow_id"].(string)
	code := resp["demo_code"].(string)

	// Verify with the right code opens a session.
	c, rec2 := testutil.NewEchoContext(f.e, http.MethodPost, "/auth/login/verify",
		strings.NewReader(`{"flow_id":"`+flowID+`","code":"`+code+`"}`))
	require.NoError(t, f.auth.LoginVerify(c))
	require.Equal(t, http.StatusOK, rec2.Code)

	var verifyResp map[string]any
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &verifyResp))
	assert.Equal(t, "logged_in", verifyResp["status"])
	assert.Equal(t, "alice", verifyResp["username"])

	cookies := rec2.Result().Cookies()
	require.Len(t, cookies, 1)

	// The session cookie authenticates /auth/me.
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookies[0])
	meRec := httptest.NewRecorder()
	meCtx := f.e.NewContext(req, meRec)

	protected := handlers.RequireSession(f.sessions)(f.auth.Me)
	require.NoError(t, protected(meCtx))
	require.Equal(t, http.StatusOK, meRec.Code)

	var meResp map[string]any
	require.NoError(t, json.Unmarshal(meRec.Body.Bytes(), &meResp))
	assert.Equal(t, "alice", meResp["username"])
	assert.Equal(t, "alice@example.com", meResp["email"])
	assert.NotNil(t, meResp["last_login"])
}

func TestLoginByEmailIdentifier(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "alice", "alice@example.com")

	rec, resp := f.call(t, f.auth.LoginBegin, `{"identifier":"alice@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = f.call(t, f.auth.LoginVerify,
		`{"flow_id":"`+resp["flow_id"].(string)+`","code":"`+resp["demo_code"].(string)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", resp["username"])
}

func TestLoginUnknownIdentifier(t *testing.T) {
	f := newFixture(t)

	rec, resp := f.call(t, f.auth.LoginBegin, `{"identifier":"nobody"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_such_account", resp["error"])
}

func TestLoginBack(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "alice", "alice@example.com")

	rec, resp := f.call(t, f.auth.LoginBegin, `{"identifier":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	flowID := resp["flow_id"].(string)
	code := resp["demo_code"].(string)

	rec, _ = f.call(t, f.auth.LoginBack, `{"flow_id":"`+flowID+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = f.call(t, f.auth.LoginVerify, `{"flow_id":"`+flowID+`","code":"`+code+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_flow", resp["error"])
}

func TestLoginResend(t *testing.T) {
	f := newFixture(t)
	testutil.NewTestUser(t, f.repo, "alice", "alice@example.com")

	rec, resp := f.call(t, f.auth.LoginBegin, `{"identifier":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	flowID := resp["flow_id"].(string)

	rec, resp = f.call(t, f.auth.LoginResend, `{"flow_id":"`+flowID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	newCode := resp["demo_code"].(string)

	rec, resp = f.call(t, f.auth.LoginVerify, `{"flow_id":"`+flowID+`","code":"`+newCode+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "logged_in", resp["status"])
}

func TestLogout(t *testing.T) {
	f := newFixture(t)

	c, rec := testutil.NewEchoContext(f.e, http.MethodPost, "/auth/logout", nil)
	require.NoError(t, f.auth.Logout(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestRequireSessionRejectsAnonymous(t *testing.T) {
	f := newFixture(t)

	c, rec := testutil.NewEchoContext(f.e, http.MethodGet, "/auth/me", nil)
	protected := handlers.RequireSession(f.sessions)(f.auth.Me)

	require.NoError(t, protected(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
