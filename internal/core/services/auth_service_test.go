package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
	apperrors "github.com/pulseboard/realtime-backend/internal/core/errors"
	"github.com/pulseboard/realtime-backend/internal/core/mocks"
	"github.com/pulseboard/realtime-backend/internal/core/services"
)

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func activeUser(t *testing.T, password string) *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Email:        "user@example.com",
		FullName:     "Test User",
		PasswordHash: hashPassword(t, password),
		Role:         domain.RoleMember,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		user := activeUser(t, "Password123")
		mockUserRepo.On("GetByEmail", ctx, "user@example.com").Return(user, nil)

		got, err := svc.Login(ctx, "user@example.com", "Password123")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		mockUserRepo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		mockUserRepo.On("GetByEmail", ctx, "user@example.com").Return(activeUser(t, "Password123"), nil)

		got, err := svc.Login(ctx, "user@example.com", "wrong")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("unknown user maps to invalid credentials", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		mockUserRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.ErrUserNotFound)

		got, err := svc.Login(ctx, "ghost@example.com", "Password123")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("inactive user", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		user := activeUser(t, "Password123")
		user.IsActive = false
		mockUserRepo.On("GetByEmail", ctx, "user@example.com").Return(user, nil)

		got, err := svc.Login(ctx, "user@example.com", "Password123")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperrors.ErrUserInactive)
	})

	t.Run("empty credentials short-circuit", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		_, err := svc.Login(ctx, "", "")
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
		mockUserRepo.AssertNotCalled(t, "GetByEmail")
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("active user refreshes", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		user := activeUser(t, "Password123")
		mockUserRepo.On("GetByID", ctx, user.ID).Return(user, nil)

		got, err := svc.Refresh(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("deactivated user cannot refresh", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		user := activeUser(t, "Password123")
		user.IsActive = false
		mockUserRepo.On("GetByID", ctx, user.ID).Return(user, nil)

		_, err := svc.Refresh(ctx, user.ID)
		assert.ErrorIs(t, err, apperrors.ErrUserInactive)
	})

	t.Run("deleted user cannot refresh", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		id := uuid.New()
		mockUserRepo.On("GetByID", ctx, id).Return(nil, apperrors.ErrUserNotFound)

		_, err := svc.Refresh(ctx, id)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})
}
