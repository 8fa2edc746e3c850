package services

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
	"github.com/pulseboard/realtime-backend/internal/core/ports"
)

// EventService is the emit surface business logic uses after a mutation
// commits. It validates the name/payload pairing and hands the event to the
// broadcaster; delivery is at-most-once from here on.
type EventService struct {
	broadcaster ports.Broadcaster
	logger      *slog.Logger
}

// NewEventService creates a new event service.
func NewEventService(broadcaster ports.Broadcaster, logger *slog.Logger) *EventService {
	return &EventService{
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// EmitProject emits an event scoped to a single project's room.
func (s *EventService) EmitProject(name domain.EventName, tenantID, projectID uuid.UUID, payload domain.Payload) error {
	return s.emit(name, domain.ProjectScope(tenantID, projectID), payload)
}

// EmitTenant emits a tenant-wide event.
func (s *EventService) EmitTenant(name domain.EventName, tenantID uuid.UUID, payload domain.Payload) error {
	return s.emit(name, domain.TenantScope(tenantID), payload)
}

// TaskChanged emits one of the task lifecycle events for a project.
func (s *EventService) TaskChanged(name domain.EventName, tenantID, projectID, taskID uuid.UUID, actorUserID uuid.UUID) error {
	return s.EmitProject(name, tenantID, projectID, &domain.TaskPayload{
		ProjectID:   &projectID,
		TaskID:      taskID,
		ActorUserID: actorUserID,
	})
}

// ProjectChanged emits one of the project lifecycle events. project:updated
// additionally reaches the tenant room so list views refresh.
func (s *EventService) ProjectChanged(name domain.EventName, tenantID, projectID uuid.UUID, actorUserID uuid.UUID) error {
	return s.EmitProject(name, tenantID, projectID, &domain.ProjectPayload{
		ProjectID:   projectID,
		ActorUserID: actorUserID,
	})
}

func (s *EventService) emit(name domain.EventName, scope domain.Scope, payload domain.Payload) error {
	event, err := domain.NewEvent(name, scope, payload)
	if err != nil {
		s.logger.Error("refusing to emit malformed event",
			"event", string(name),
			"error", err,
		)
		return err
	}
	s.broadcaster.Emit(event)
	return nil
}
