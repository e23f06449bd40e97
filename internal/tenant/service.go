package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/lmscore/internal/maintenance"
	"github.com/nikhilbhutani/lmscore/internal/models"
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// TenantStatus implements StatusLookup. Soft-deleted tenants are reported
// as not found.
func (s *Service) TenantStatus(ctx context.Context, tenantID int64) (models.TenantStatus, error) {
	var status models.TenantStatus
	err := s.db.QueryRow(ctx,
		"SELECT status FROM tenants WHERE id = $1 AND NOT is_deleted", tenantID,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrTenantNotFound
	}
	if err != nil {
		return "", fmt.Errorf("tenant status: %w", err)
	}
	return status, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.QueryRow(ctx,
		`SELECT id, name, status, is_deleted, created_by, created_at, updated_at
		 FROM tenants WHERE id = $1 AND NOT is_deleted`, id,
	).Scan(&t.ID, &t.Name, &t.Status, &t.IsDeleted, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// List returns every live tenant. It is a platform-wide listing and callers
// must restrict it to the platform-wide role.
func (s *Service) List(ctx context.Context) ([]models.Tenant, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, status, is_deleted, created_by, created_at, updated_at
		 FROM tenants WHERE NOT is_deleted ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.IsDeleted, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// Create inserts a tenant. Tenant creation outside the admin flows is a
// maintenance operation and needs a capability.
func (s *Service) Create(ctx context.Context, c *maintenance.Capability, name string, status models.TenantStatus, createdBy *int64) (*models.Tenant, error) {
	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("create tenant: invalid status %q", status)
	}
	var t models.Tenant
	err := s.db.QueryRow(ctx,
		`INSERT INTO tenants (name, status, created_by) VALUES ($1, $2, $3)
		 RETURNING id, name, status, is_deleted, created_by, created_at, updated_at`,
		name, status, createdBy,
	).Scan(&t.ID, &t.Name, &t.Status, &t.IsDeleted, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	return &t, nil
}

// UserExists reports whether userID is a system user inside the predicate's
// tenant.
func (s *Service) UserExists(ctx context.Context, pred Predicate, userID int64) (bool, error) {
	if !pred.Valid() {
		return false, ErrUnscoped
	}
	where, args := pred.Where(2)
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM system_users WHERE id = $1 AND "+where+")",
		append([]any{userID}, args...)...,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}
