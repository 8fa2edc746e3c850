package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
	apperrors "github.com/pulseboard/realtime-backend/internal/core/errors"
	"github.com/pulseboard/realtime-backend/internal/core/ports"
)

// UserRepository is the secondary adapter for account lookups. The realtime
// tier never writes users; the main application owns that table.
type UserRepository struct {
	pool *pgxpool.Pool
}

var _ ports.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new user repository.
func NewUserRepository(pool *pgxpool.Pool) ports.UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, tenant_id, email, full_name, password_hash, role, is_active, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		id       pgtype.UUID
		tenantID pgtype.UUID
		user     domain.User
		role     string
	)
	err := row.Scan(&id, &tenantID, &user.Email, &user.FullName,
		&user.PasswordHash, &role, &user.IsActive, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	user.ID = id.Bytes
	user.TenantID = tenantID.Bytes
	user.Role = domain.Role(role)
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		pgtype.UUID{Bytes: id, Valid: true})

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
