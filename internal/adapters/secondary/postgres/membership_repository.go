package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulseboard/realtime-backend/internal/core/ports"
)

// MembershipRepository answers project membership questions for the room
// manager. Both queries are scoped by tenant so a stolen project ID from
// another tenant can never pass the check.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MembershipStore = (*MembershipRepository)(nil)

// NewMembershipRepository creates a new membership repository.
func NewMembershipRepository(pool *pgxpool.Pool) ports.MembershipStore {
	return &MembershipRepository{pool: pool}
}

// IsMember reports whether the user holds membership in the project.
func (r *MembershipRepository) IsMember(ctx context.Context, tenantID, userID, projectID uuid.UUID) (bool, error) {
	var isMember bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM project_members pm
			JOIN projects p ON p.id = pm.project_id
			WHERE pm.project_id = $1 AND pm.user_id = $2 AND p.tenant_id = $3
		)`,
		pgtype.UUID{Bytes: projectID, Valid: true},
		pgtype.UUID{Bytes: userID, Valid: true},
		pgtype.UUID{Bytes: tenantID, Valid: true},
	).Scan(&isMember)
	if err != nil {
		return false, err
	}
	return isMember, nil
}

// ProjectExists reports whether the project exists within the tenant.
func (r *MembershipRepository) ProjectExists(ctx context.Context, tenantID, projectID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM projects WHERE id = $1 AND tenant_id = $2
		)`,
		pgtype.UUID{Bytes: projectID, Valid: true},
		pgtype.UUID{Bytes: tenantID, Valid: true},
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
