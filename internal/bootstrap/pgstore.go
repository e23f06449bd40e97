package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/lmscore/internal/models"
)

const bootstrapLockKey int64 = 0x6c6d735f626f6f74 // "lms_boot"

const uniqueViolation = "23505"

// PGStore serializes bootstrap runs with a transaction-scoped advisory
// lock. Concurrent runs on other processes block until the holder commits
// and then observe its rows.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) WithLock(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bootstrap tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
		return fmt.Errorf("acquire bootstrap lock: %w", err)
	}
	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bootstrap tx: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) FindRole(ctx context.Context, roleType models.Role) (*models.RoleRecord, error) {
	var r models.RoleRecord
	err := t.tx.QueryRow(ctx,
		`SELECT id, role_type, name, tenant_id, created_by, created_at
		 FROM roles WHERE role_type = $1 AND tenant_id IS NULL`, roleType,
	).Scan(&r.ID, &r.Type, &r.Name, &r.TenantID, &r.CreatedBy, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *pgTx) CreateRole(ctx context.Context, roleType models.Role, name string) (*models.RoleRecord, error) {
	r := models.RoleRecord{Type: roleType, Name: name}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO roles (role_type, name) VALUES ($1, $2)
		 RETURNING id, created_at`, roleType, name,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return nil, mapConflict(err)
	}
	return &r, nil
}

func (t *pgTx) FindUser(ctx context.Context, email string, roleType models.Role) (*models.SystemUser, error) {
	var u models.SystemUser
	err := t.tx.QueryRow(ctx,
		`SELECT u.id, u.tenant_id, u.role_id, u.email, u.full_name, u.created_by, u.created_at
		 FROM system_users u JOIN roles r ON r.id = u.role_id
		 WHERE lower(u.email) = lower($1) AND r.role_type = $2`, email, roleType,
	).Scan(&u.ID, &u.TenantID, &u.RoleID, &u.Email, &u.FullName, &u.CreatedBy, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *pgTx) CreateUser(ctx context.Context, u models.SystemUser) (*models.SystemUser, error) {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO system_users (tenant_id, role_id, email, full_name)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`, u.TenantID, u.RoleID, u.Email, u.FullName,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, mapConflict(err)
	}
	return &u, nil
}

func (t *pgTx) SetRoleCreatedBy(ctx context.Context, roleID, userID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE roles SET created_by = $2 WHERE id = $1 AND created_by IS NULL`, roleID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) SetUserCreatedBy(ctx context.Context, userID, createdBy int64) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE system_users SET created_by = $2 WHERE id = $1 AND created_by IS NULL`, userID, createdBy)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}
