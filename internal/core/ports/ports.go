package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
)

// UserRepository looks up accounts for credential issuance. Owned by the main
// application's database; the realtime tier only reads.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// MembershipStore answers "does user X in tenant Y have membership in project
// Z". The room manager consults it before honoring a project:join request.
type MembershipStore interface {
	IsMember(ctx context.Context, tenantID, userID, projectID uuid.UUID) (bool, error)
	ProjectExists(ctx context.Context, tenantID, projectID uuid.UUID) (bool, error)
}

// NotificationStore persists notification records before they are announced
// over the socket.
type NotificationStore interface {
	Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error)
	ListForUser(ctx context.Context, tenantID, userID uuid.UUID, limit int) ([]*domain.Notification, error)
}

// Broadcaster is the fan-out core as seen by business logic. Emission is
// fire-and-forget: delivery is at-most-once and an absent subscriber simply
// misses the event.
type Broadcaster interface {
	Emit(event domain.Event)
}

// AuthService is the port for credential issuance.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*domain.User, error)
	// Refresh re-validates that the user behind a refresh token is still
	// active before new tokens are minted.
	Refresh(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// CreateNotificationParams is the input for creating a notification.
type CreateNotificationParams struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	ProjectID *uuid.UUID
	Title     string
	Body      string
}

// NotificationService persists a notification and announces it.
type NotificationService interface {
	Create(ctx context.Context, params CreateNotificationParams) (*domain.Notification, error)
	ListForUser(ctx context.Context, tenantID, userID uuid.UUID, limit int) ([]*domain.Notification, error)
}
