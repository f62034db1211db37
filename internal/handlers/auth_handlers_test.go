package handlers

import (
	"context"
	"net/http"
	"testing"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authServiceStub struct {
	services.AuthService
	login    func(req models.Credentials) (*models.LoginResponse, error)
	register func(req services.RegisterUserRequest) (*models.User, error)
}

func (s *authServiceStub) LoginUser(_ context.Context, req models.Credentials) (*models.LoginResponse, error) {
	return s.login(req)
}

func (s *authServiceStub) RegisterUser(_ context.Context, req services.RegisterUserRequest) (*models.User, error) {
	return s.register(req)
}

func (s *authServiceStub) GetUserProfile(_ context.Context, userID int64) (*models.User, error) {
	if userID != 1 {
		return nil, services.ErrUserNotFound
	}
	return &models.User{ID: 1, Email: "admin@gym.test", Role: models.RoleAdmin}, nil
}

func TestLoginHandler(t *testing.T) {
	stub := &authServiceStub{login: func(req models.Credentials) (*models.LoginResponse, error) {
		if req.Password != "secret123" {
			return nil, services.ErrInvalidCredentials
		}
		return &models.LoginResponse{AccessToken: "token", User: &models.User{ID: 1, Email: req.Email}}, nil
	}}
	engine := newEngine(0)
	engine.POST("/auth/login", NewAuthHandler(stub).LoginUser)

	rec := do(t, engine, http.MethodPost, "/auth/login", map[string]string{"email": "admin@gym.test", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.LoginResponse
	decode(t, rec, &resp)
	assert.Equal(t, "token", resp.AccessToken)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(t, engine, http.MethodPost, "/auth/login", map[string]string{"email": "admin@gym.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	stub := &authServiceStub{register: func(services.RegisterUserRequest) (*models.User, error) {
		return nil, services.ErrEmailExists
	}}
	engine := newEngine(1)
	engine.POST("/auth/register", NewAuthHandler(stub).RegisterUser)

	rec := do(t, engine, http.MethodPost, "/auth/register", map[string]string{"email": "a@gym.test", "password": "secret123", "name": "A"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetCurrentUser(t *testing.T) {
	engine := newEngine(1)
	engine.GET("/auth/me", NewAuthHandler(&authServiceStub{}).GetCurrentUser)
	rec := do(t, engine, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	anonymous := newEngine(0)
	anonymous.GET("/auth/me", NewAuthHandler(&authServiceStub{}).GetCurrentUser)
	rec = do(t, anonymous, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
