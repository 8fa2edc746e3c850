package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
	"github.com/pulseboard/realtime-backend/internal/core/mocks"
	"github.com/pulseboard/realtime-backend/internal/core/ports"
	"github.com/pulseboard/realtime-backend/internal/core/services"
)

func TestNotificationService_Create(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	userID := uuid.New()

	t.Run("persists then emits", func(t *testing.T) {
		store := mocks.NewMockNotificationStore()
		broadcaster := mocks.NewMockBroadcaster()
		svc := services.NewNotificationService(store, broadcaster)

		created := &domain.Notification{
			ID:        uuid.New(),
			TenantID:  tenantID,
			UserID:    userID,
			Title:     "Task assigned",
			Body:      "You were assigned to a task",
			CreatedAt: time.Now(),
		}
		store.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(created, nil)
		broadcaster.On("Emit", mock.MatchedBy(func(event domain.Event) bool {
			if event.Name != domain.EventNotificationNew {
				return false
			}
			if event.Scope.TenantID != tenantID || event.Scope.ProjectID != nil {
				return false
			}
			payload, ok := event.Payload.(*domain.NotificationPayload)
			return ok && payload.ID == created.ID && payload.Title == "Task assigned"
		})).Return()

		got, err := svc.Create(ctx, ports.CreateNotificationParams{
			TenantID: tenantID,
			UserID:   userID,
			Title:    "Task assigned",
			Body:     "You were assigned to a task",
		})
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)

		store.AssertExpectations(t)
		broadcaster.AssertExpectations(t)
	})

	t.Run("store failure suppresses emit", func(t *testing.T) {
		store := mocks.NewMockNotificationStore()
		broadcaster := mocks.NewMockBroadcaster()
		svc := services.NewNotificationService(store, broadcaster)

		store.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
			Return(nil, errors.New("db down"))

		_, err := svc.Create(ctx, ports.CreateNotificationParams{
			TenantID: tenantID,
			UserID:   userID,
			Title:    "Task assigned",
		})
		assert.Error(t, err)
		broadcaster.AssertNotCalled(t, "Emit")
	})

	t.Run("invalid params never reach the store", func(t *testing.T) {
		store := mocks.NewMockNotificationStore()
		broadcaster := mocks.NewMockBroadcaster()
		svc := services.NewNotificationService(store, broadcaster)

		_, err := svc.Create(ctx, ports.CreateNotificationParams{})
		assert.Error(t, err)
		store.AssertNotCalled(t, "Create")
		broadcaster.AssertNotCalled(t, "Emit")
	})
}

func TestNotificationService_ListForUser(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	userID := uuid.New()

	store := mocks.NewMockNotificationStore()
	svc := services.NewNotificationService(store, mocks.NewMockBroadcaster())

	store.On("ListForUser", ctx, tenantID, userID, 50).Return([]*domain.Notification{}, nil)

	// Out-of-range limits fall back to the default page size.
	_, err := svc.ListForUser(ctx, tenantID, userID, 0)
	require.NoError(t, err)
	store.AssertExpectations(t)
}
