package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fixture seeds one tenant with a user for repository tests. Each test gets
// its own tenant so tests stay independent of each other.
type fixture struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Email    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")

	ctx := context.Background()
	f := fixture{
		TenantID: uuid.New(),
		UserID:   uuid.New(),
		Email:    fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8]),
	}

	_, err := testPool.Exec(ctx,
		`INSERT INTO tenants (id, name) VALUES ($1, $2)`,
		f.TenantID, "Test Tenant")
	require.NoError(t, err)

	_, err = testPool.Exec(ctx,
		`INSERT INTO users (id, tenant_id, email, full_name, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		f.UserID, f.TenantID, f.Email, "Test User", "hashedpassword", "member")
	require.NoError(t, err)

	return f
}

// addProject creates a project in the fixture's tenant.
func (f fixture) addProject(t *testing.T) uuid.UUID {
	t.Helper()
	projectID := uuid.New()
	_, err := testPool.Exec(context.Background(),
		`INSERT INTO projects (id, tenant_id, name) VALUES ($1, $2, $3)`,
		projectID, f.TenantID, "Test Project")
	require.NoError(t, err)
	return projectID
}

// addMember enrolls a user into a project.
func (f fixture) addMember(t *testing.T, projectID, userID uuid.UUID) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`INSERT INTO project_members (project_id, user_id) VALUES ($1, $2)`,
		projectID, userID)
	require.NoError(t, err)
}
