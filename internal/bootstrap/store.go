package bootstrap

import (
	"context"
	"errors"

	"github.com/nikhilbhutani/lmscore/internal/models"
)

var (
	ErrNotFound = errors.New("bootstrap: not found")
	// ErrConflict is returned when a create collides with an existing row
	// on its natural key.
	ErrConflict = errors.New("bootstrap: conflict")
)

// Store runs fn with exclusive access to the bootstrap rows. Everything fn
// does through tx commits together or not at all.
type Store interface {
	WithLock(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the find/create/update capability bootstrap needs from the store.
type Tx interface {
	FindRole(ctx context.Context, roleType models.Role) (*models.RoleRecord, error)
	CreateRole(ctx context.Context, roleType models.Role, name string) (*models.RoleRecord, error)
	FindUser(ctx context.Context, email string, roleType models.Role) (*models.SystemUser, error)
	CreateUser(ctx context.Context, u models.SystemUser) (*models.SystemUser, error)

	// SetRoleCreatedBy and SetUserCreatedBy only touch rows whose
	// created_by is still NULL and report whether a row changed.
	SetRoleCreatedBy(ctx context.Context, roleID, userID int64) (bool, error)
	SetUserCreatedBy(ctx context.Context, userID, createdBy int64) (bool, error)
}
