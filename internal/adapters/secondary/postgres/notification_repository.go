package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
	"github.com/pulseboard/realtime-backend/internal/core/ports"
)

// NotificationRepository persists notification records. Persistence happens
// before the socket announcement so a missed event is recoverable from here.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

var _ ports.NotificationStore = (*NotificationRepository)(nil)

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(pool *pgxpool.Pool) ports.NotificationStore {
	return &NotificationRepository{pool: pool}
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		id        pgtype.UUID
		tenantID  pgtype.UUID
		userID    pgtype.UUID
		projectID pgtype.UUID
		n         domain.Notification
	)
	err := row.Scan(&id, &tenantID, &userID, &projectID,
		&n.Title, &n.Body, &n.Read, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.ID = id.Bytes
	n.TenantID = tenantID.Bytes
	n.UserID = userID.Bytes
	if projectID.Valid {
		pid := uuid.UUID(projectID.Bytes)
		n.ProjectID = &pid
	}
	return &n, nil
}

func toPgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

// Create persists a new notification and returns the stored record.
func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO notifications (tenant_id, user_id, project_id, title, body)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, tenant_id, user_id, project_id, title, body, read, created_at`,
		pgtype.UUID{Bytes: notification.TenantID, Valid: true},
		pgtype.UUID{Bytes: notification.UserID, Valid: true},
		toPgUUID(notification.ProjectID),
		notification.Title,
		notification.Body,
	)
	return scanNotification(row)
}

// ListForUser returns the user's most recent notifications, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, tenantID, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, user_id, project_id, title, body, read, created_at
		 FROM notifications
		 WHERE tenant_id = $1 AND user_id = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`,
		pgtype.UUID{Bytes: tenantID, Valid: true},
		pgtype.UUID{Bytes: userID, Valid: true},
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}
