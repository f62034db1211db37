package services

import (
	"context"
	"testing"
	"time"

	"gymcore_backend/internal/models"
	"gymcore_backend/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture() (*memDB, AuthService, *utils.JWTManager) {
	db := newMemDB()
	jwt := utils.NewJWTManager("test-secret", time.Hour)
	return db, NewAuthService(db, jwt), jwt
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	db, svc, jwt := newAuthFixture()

	user, err := svc.RegisterUser(ctx, RegisterUserRequest{
		Email: "desk@gym.test", Password: "s3cret-pass", Name: " Front Desk ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleReceptionist, user.Role)
	assert.Equal(t, "Front Desk", user.Name)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	_, err = svc.RegisterUser(ctx, RegisterUserRequest{Email: "DESK@gym.test", Password: "another-pass", Name: "Dup"})
	assert.ErrorIs(t, err, ErrEmailExists)

	resp, err := svc.LoginUser(ctx, models.Credentials{Email: "desk@gym.test", Password: "s3cret-pass"})
	require.NoError(t, err)
	claims, err := jwt.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleReceptionist, claims.Role)

	_, err = svc.LoginUser(ctx, models.Credentials{Email: "desk@gym.test", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.LoginUser(ctx, models.Credentials{Email: "nobody@gym.test", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, db.DeactivateUser(ctx, user.ID))
	_, err = svc.LoginUser(ctx, models.Credentials{Email: "desk@gym.test", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterUser_Validation(t *testing.T) {
	_, svc, _ := newAuthFixture()
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, RegisterUserRequest{Email: "a@gym.test", Password: "password1", Name: "A", Role: "janitor"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.RegisterUser(ctx, RegisterUserRequest{Email: "not-mail", Password: "password1", Name: "A"})
	assert.ErrorIs(t, err, ErrValidation)

	u, err := svc.RegisterUser(ctx, RegisterUserRequest{Email: "boss@gym.test", Password: "password1", Name: "Boss", Role: "owner"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, u.Role)
}

func TestUserService(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	svc := NewUserService(db)

	_, err := svc.SystemUser(ctx)
	assert.ErrorIs(t, err, ErrUserNotFound)

	staff := db.addUser("Trainer", models.RoleTrainer, true)
	updated, err := svc.UpdateUser(ctx, staff.ID, UpdateUserRequest{Role: strPtr("admin"), Phone: strPtr("555-0100")})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	require.NotNil(t, updated.Phone)

	system, err := svc.SystemUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, system.ID)

	_, err = svc.UpdateUser(ctx, staff.ID, UpdateUserRequest{Name: strPtr(" ")})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.DeactivateUser(ctx, staff.ID))
	_, err = svc.SystemUser(ctx)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, svc.DeactivateUser(ctx, 999), ErrUserNotFound)
}
