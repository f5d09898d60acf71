package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/elective-portal-api/internal/middleware"
	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
)

type authServiceMock struct {
	registered models.RegisterRequest
	loginErr   error
	loggedOut  string
}

func (m *authServiceMock) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	m.registered = req
	return &models.LoginResponse{AccessToken: "access", User: models.UserInfo{Email: req.Email, Role: models.RoleStudent}}, nil
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (m *authServiceMock) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "access-2"}, nil
}

func (m *authServiceMock) Logout(ctx context.Context, refreshToken string, userID string, meta models.LoginRequest) error {
	m.loggedOut = refreshToken
	return nil
}

func (m *authServiceMock) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	return nil
}

func (m *authServiceMock) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, Role: models.RoleStudent, StudentID: "stu-1"}, nil
}

func TestAuthHandlerRegister(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)
	c, w := newJSONContext(http.MethodPost, "/auth/register", []byte(`{"email":"ayu@example.edu","password":"secret1","full_name":"Ayu","roll_number":"CS-001","department":"CS","semester":5}`))
	c.Request.Header.Set("User-Agent", "test-agent")

	handler.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "CS-001", svc.registered.RollNumber)
	assert.Equal(t, "test-agent", svc.registered.UserAgent)
}

func TestAuthHandlerLoginFailure(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrInvalidCredentials})
	c, w := newJSONContext(http.MethodPost, "/auth/login", []byte(`{"email":"ayu@example.edu","password":"nope"}`))

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeBody(t, w)["code"])
}

func TestAuthHandlerMeAndLogout(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, w := newJSONContext(http.MethodGet, "/auth/me", nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newJSONContext(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, studentClaims())
	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "stu-1", data["student_id"])

	c, w = newJSONContext(http.MethodPost, "/auth/logout", []byte(`{"refresh_token":"rt-1"}`))
	c.Set(middleware.ContextUserKey, studentClaims())
	handler.Logout(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "rt-1", svc.loggedOut)
}

func TestAuthHandlerRejectsMalformedPayloads(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, w := newJSONContext(http.MethodPost, "/auth/register", []byte(`{"email":`))
	handler.Register(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeBody(t, w)["code"])

	c, w = newJSONContext(http.MethodPost, "/auth/logout", []byte(`{}`))
	c.Set(middleware.ContextUserKey, studentClaims())
	handler.Logout(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.loggedOut)
}
