package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
	"github.com/pulseboard/realtime-backend/internal/core/ports"
)

// NotificationService persists notifications and announces them over the
// realtime layer. The persisted record is the authoritative state; the
// emitted event is an at-most-once announcement that clients may miss and
// later recover via ListForUser.
type NotificationService struct {
	store       ports.NotificationStore
	broadcaster ports.Broadcaster
}

var _ ports.NotificationService = (*NotificationService)(nil)

// NewNotificationService creates a new notification service.
func NewNotificationService(store ports.NotificationStore, broadcaster ports.Broadcaster) ports.NotificationService {
	return &NotificationService{
		store:       store,
		broadcaster: broadcaster,
	}
}

// Create persists the notification, then emits notification:new to the
// recipient's tenant room. Persistence failures abort the emit; a persisted
// record with a lost announcement is recoverable, the reverse is not.
func (s *NotificationService) Create(ctx context.Context, params ports.CreateNotificationParams) (*domain.Notification, error) {
	notification := &domain.Notification{
		TenantID:  params.TenantID,
		UserID:    params.UserID,
		ProjectID: params.ProjectID,
		Title:     params.Title,
		Body:      params.Body,
	}
	if err := notification.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, notification)
	if err != nil {
		return nil, err
	}

	event, err := domain.NewEvent(domain.EventNotificationNew,
		domain.TenantScope(created.TenantID), created.Payload())
	if err != nil {
		return nil, err
	}
	s.broadcaster.Emit(event)

	return created, nil
}

// ListForUser returns recent notifications for a user, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, tenantID, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListForUser(ctx, tenantID, userID, limit)
}
