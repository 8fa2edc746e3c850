package services_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
	"github.com/pulseboard/realtime-backend/internal/core/mocks"
	"github.com/pulseboard/realtime-backend/internal/core/services"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventService_Emit(t *testing.T) {
	tenantID := uuid.New()
	projectID := uuid.New()
	actorID := uuid.New()

	t.Run("task change reaches the project scope", func(t *testing.T) {
		broadcaster := mocks.NewMockBroadcaster()
		svc := services.NewEventService(broadcaster, discardLogger())

		taskID := uuid.New()
		broadcaster.On("Emit", mock.MatchedBy(func(event domain.Event) bool {
			if event.Name != domain.EventTaskUpdated {
				return false
			}
			if event.Scope.TenantID != tenantID {
				return false
			}
			if event.Scope.ProjectID == nil || *event.Scope.ProjectID != projectID {
				return false
			}
			payload, ok := event.Payload.(*domain.TaskPayload)
			return ok && payload.TaskID == taskID && payload.ActorUserID == actorID
		})).Return()

		err := svc.TaskChanged(domain.EventTaskUpdated, tenantID, projectID, taskID, actorID)
		require.NoError(t, err)
		broadcaster.AssertExpectations(t)
	})

	t.Run("project change carries the project payload", func(t *testing.T) {
		broadcaster := mocks.NewMockBroadcaster()
		svc := services.NewEventService(broadcaster, discardLogger())

		broadcaster.On("Emit", mock.MatchedBy(func(event domain.Event) bool {
			payload, ok := event.Payload.(*domain.ProjectPayload)
			return ok && event.Name == domain.EventProjectUpdated && payload.ProjectID == projectID
		})).Return()

		err := svc.ProjectChanged(domain.EventProjectUpdated, tenantID, projectID, actorID)
		require.NoError(t, err)
		broadcaster.AssertExpectations(t)
	})

	t.Run("mismatched payload is refused before emit", func(t *testing.T) {
		broadcaster := mocks.NewMockBroadcaster()
		svc := services.NewEventService(broadcaster, discardLogger())

		err := svc.EmitTenant(domain.EventTaskCreated, tenantID, &domain.ProjectPayload{ProjectID: projectID})
		require.Error(t, err)
		broadcaster.AssertNotCalled(t, "Emit", mock.Anything)
	})

	t.Run("unknown event name is refused", func(t *testing.T) {
		broadcaster := mocks.NewMockBroadcaster()
		svc := services.NewEventService(broadcaster, discardLogger())

		err := svc.EmitTenant(domain.EventName("task:renamed"), tenantID, &domain.TaskPayload{})
		assert.Error(t, err)
		broadcaster.AssertNotCalled(t, "Emit", mock.Anything)
	})
}
