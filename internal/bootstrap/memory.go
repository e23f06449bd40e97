package bootstrap

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nikhilbhutani/lmscore/internal/models"
)

// MemoryStore is an in-process Store. WithLock holds the mutex for the whole
// callback and restores the previous rows if the callback fails.
type MemoryStore struct {
	mu     sync.Mutex
	roles  []models.RoleRecord
	users  []models.SystemUser
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) WithLock(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roles, users, nextID := cloneRoles(s.roles), cloneUsers(s.users), s.nextID
	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.roles, s.users, s.nextID = roles, users, nextID
		return err
	}
	return nil
}

func (s *MemoryStore) Roles() []models.RoleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRoles(s.roles)
}

func (s *MemoryStore) Users() []models.SystemUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUsers(s.users)
}

// memTx runs with MemoryStore.mu held.
type memTx struct {
	s *MemoryStore
}

func (t *memTx) id() int64 {
	t.s.nextID++
	return t.s.nextID
}

func (t *memTx) FindRole(_ context.Context, roleType models.Role) (*models.RoleRecord, error) {
	for _, r := range t.s.roles {
		if r.Type == roleType && r.TenantID == nil {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) CreateRole(ctx context.Context, roleType models.Role, name string) (*models.RoleRecord, error) {
	if _, err := t.FindRole(ctx, roleType); err == nil {
		return nil, ErrConflict
	}
	r := models.RoleRecord{ID: t.id(), Type: roleType, Name: name, CreatedAt: time.Now()}
	t.s.roles = append(t.s.roles, r)
	return &r, nil
}

func (t *memTx) FindUser(_ context.Context, email string, roleType models.Role) (*models.SystemUser, error) {
	for _, u := range t.s.users {
		if !strings.EqualFold(u.Email, email) {
			continue
		}
		for _, r := range t.s.roles {
			if r.ID == u.RoleID && r.Type == roleType {
				return &u, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) CreateUser(_ context.Context, u models.SystemUser) (*models.SystemUser, error) {
	for _, existing := range t.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, ErrConflict
		}
	}
	u.ID = t.id()
	u.CreatedAt = time.Now()
	t.s.users = append(t.s.users, u)
	return &u, nil
}

func (t *memTx) SetRoleCreatedBy(_ context.Context, roleID, userID int64) (bool, error) {
	for i := range t.s.roles {
		if t.s.roles[i].ID != roleID {
			continue
		}
		if t.s.roles[i].CreatedBy != nil {
			return false, nil
		}
		t.s.roles[i].CreatedBy = &userID
		return true, nil
	}
	return false, ErrNotFound
}

func (t *memTx) SetUserCreatedBy(_ context.Context, userID, createdBy int64) (bool, error) {
	for i := range t.s.users {
		if t.s.users[i].ID != userID {
			continue
		}
		if t.s.users[i].CreatedBy != nil {
			return false, nil
		}
		t.s.users[i].CreatedBy = &createdBy
		return true, nil
	}
	return false, ErrNotFound
}

// cloneRoles deep-copies created_by.
func cloneRoles(in []models.RoleRecord) []models.RoleRecord {
	out := slices.Clone(in)
	for i := range out {
		if out[i].CreatedBy != nil {
			v := *out[i].CreatedBy
			out[i].CreatedBy = &v
		}
	}
	return out
}

func cloneUsers(in []models.SystemUser) []models.SystemUser {
	out := slices.Clone(in)
	for i := range out {
		if out[i].CreatedBy != nil {
			v := *out[i].CreatedBy
			out[i].CreatedBy = &v
		}
	}
	return out
}
