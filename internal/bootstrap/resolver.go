// Package bootstrap creates the platform role, the tenant admin template
// role and the first platform administrator. The three rows reference each
// other through created_by, so they are created with a NULL reference and
// patched to the administrator's id in the same transaction.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/nikhilbhutani/lmscore/internal/models"
)

type Config struct {
	AdminEmail string
	AdminName  string
}

// RunRecorder observes bootstrap outcomes.
type RunRecorder interface {
	RecordBootstrap(outcome string)
}

type Option func(*Resolver)

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func WithRecorder(rec RunRecorder) Option {
	return func(r *Resolver) { r.recorder = rec }
}

type Resolver struct {
	store    Store
	cfg      Config
	logger   *slog.Logger
	recorder RunRecorder
}

func NewResolver(store Store, cfg Config, opts ...Option) *Resolver {
	r := &Resolver{store: store, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result describes the bootstrap rows after a run.
type Result struct {
	PlatformRole models.RoleRecord
	TemplateRole models.RoleRecord
	Admin        models.SystemUser
	// Created lists the rows this run inserted, e.g. "role:SUPER_ADMIN".
	Created []string
	Patched int
}

// Initialized reports whether the run found everything already in place.
func (r *Result) Initialized() bool {
	return len(r.Created) == 0 && r.Patched == 0
}

// Run executes the four bootstrap steps in order under the store lock. It
// is idempotent: existing rows are found by role type and by email plus
// role type and never duplicated. Any error leaves the store untouched and
// must be treated as fatal by the caller.
func (r *Resolver) Run(ctx context.Context) (*Result, error) {
	email, err := normalizeEmail(r.cfg.AdminEmail)
	if err != nil {
		r.record("failed")
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	var res *Result
	err = r.store.WithLock(ctx, func(ctx context.Context, tx Tx) error {
		res = &Result{}

		platform, err := r.ensureRole(ctx, tx, res, models.RoleSuperAdmin, "Super Administrator")
		if err != nil {
			return err
		}
		template, err := r.ensureRole(ctx, tx, res, models.RoleTenantAdmin, "Tenant Administrator")
		if err != nil {
			return err
		}
		admin, err := r.ensureAdmin(ctx, tx, res, email, platform.ID)
		if err != nil {
			return err
		}

		if err := r.patch(ctx, tx, res, platform, template, admin); err != nil {
			return err
		}
		res.PlatformRole, res.TemplateRole, res.Admin = *platform, *template, *admin
		return nil
	})
	if err != nil {
		r.record("failed")
		r.logger.Error("bootstrap failed", "error", err)
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	outcome := "created"
	if res.Initialized() {
		outcome = "noop"
	}
	r.record(outcome)
	r.logger.Info("bootstrap complete",
		"outcome", outcome,
		"admin_id", res.Admin.ID,
		"created", res.Created,
		"patched", res.Patched,
	)
	return res, nil
}

func (r *Resolver) ensureRole(ctx context.Context, tx Tx, res *Result, roleType models.Role, name string) (*models.RoleRecord, error) {
	role, err := tx.FindRole(ctx, roleType)
	if err == nil {
		r.logger.Info("bootstrap role exists", "role_type", roleType, "role_id", role.ID)
		return role, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find role %s: %w", roleType, err)
	}

	role, err = tx.CreateRole(ctx, roleType, name)
	if err != nil {
		return nil, fmt.Errorf("create role %s: %w", roleType, err)
	}
	res.Created = append(res.Created, "role:"+string(roleType))
	r.logger.Info("bootstrap role created", "role_type", roleType, "role_id", role.ID)
	return role, nil
}

func (r *Resolver) ensureAdmin(ctx context.Context, tx Tx, res *Result, email string, roleID int64) (*models.SystemUser, error) {
	u, err := tx.FindUser(ctx, email, models.RoleSuperAdmin)
	if err == nil {
		r.logger.Info("bootstrap admin exists", "user_id", u.ID)
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find admin: %w", err)
	}

	u, err = tx.CreateUser(ctx, models.SystemUser{
		RoleID:   roleID,
		Email:    email,
		FullName: r.cfg.AdminName,
	})
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	res.Created = append(res.Created, "user:"+email)
	r.logger.Info("bootstrap admin created", "user_id", u.ID)
	return u, nil
}

func (r *Resolver) patch(ctx context.Context, tx Tx, res *Result, platform, template *models.RoleRecord, admin *models.SystemUser) error {
	uid := admin.ID
	for _, role := range []*models.RoleRecord{platform, template} {
		changed, err := tx.SetRoleCreatedBy(ctx, role.ID, admin.ID)
		if err != nil {
			return fmt.Errorf("patch role %s created_by: %w", role.Type, err)
		}
		if changed {
			role.CreatedBy = &uid
			res.Patched++
		}
		if role.CreatedBy == nil {
			return fmt.Errorf("role %s created_by still null after patch", role.Type)
		}
	}

	changed, err := tx.SetUserCreatedBy(ctx, admin.ID, admin.ID)
	if err != nil {
		return fmt.Errorf("patch admin created_by: %w", err)
	}
	if changed {
		admin.CreatedBy = &uid
		res.Patched++
	}
	if admin.CreatedBy == nil {
		return errors.New("admin created_by still null after patch")
	}
	return nil
}

func (r *Resolver) record(outcome string) {
	if r.recorder != nil {
		r.recorder.RecordBootstrap(outcome)
	}
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid admin email %q: %w", raw, err)
	}
	return strings.ToLower(addr.Address), nil
}
