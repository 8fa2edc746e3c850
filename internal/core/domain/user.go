package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/pulseboard/realtime-backend/internal/core/errors"
)

// Role is a user's role within its tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
	RoleBot    Role = "bot"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleMember, RoleBot:
		return true
	}
	return false
}

// Identity is the authenticated identity attached to a connection at
// handshake time. It never changes for the lifetime of the connection.
type Identity struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     Role
}

// User is an account within a tenant. Realtime only needs it for credential
// issuance and membership checks; everything else about users lives in the
// main application.
type User struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Email        string
	FullName     string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
}

// Identity returns the realtime identity for this user.
func (u *User) Identity() Identity {
	return Identity{TenantID: u.TenantID, UserID: u.ID, Role: u.Role}
}

// Notification is a persisted notification record. The realtime layer
// persists it via the store collaborator and then announces it with
// notification:new.
type Notification struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	ProjectID *uuid.UUID
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}

// Validate checks the fields a notification needs before persistence.
func (n *Notification) Validate() error {
	errs := apperrors.NewValidationErrors()
	if n.TenantID == uuid.Nil {
		errs.Add("tenantId", "tenant ID is required")
	}
	if n.UserID == uuid.Nil {
		errs.Add("userId", "user ID is required")
	}
	if n.Title == "" {
		errs.Add("title", "title is required")
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Payload returns the wire payload announcing this notification.
func (n *Notification) Payload() *NotificationPayload {
	return &NotificationPayload{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		ProjectID: n.ProjectID,
	}
}
