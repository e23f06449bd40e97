package course

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/lmscore/internal/models"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

// Store reads and writes courses. Every method takes a tenant.Predicate;
// there is no way to query courses across tenants.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) List(ctx context.Context, pred tenant.Predicate) ([]models.Course, error) {
	if !pred.Valid() {
		return nil, tenant.ErrUnscoped
	}
	where, args := pred.Where(1)
	rows, err := s.db.Query(ctx,
		"SELECT id, tenant_id, title, status, created_at FROM courses WHERE "+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Title, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// Create inserts a course into the predicate's tenant.
func (s *Store) Create(ctx context.Context, pred tenant.Predicate, title, status string) (*models.Course, error) {
	if !pred.Valid() {
		return nil, tenant.ErrUnscoped
	}
	c := models.Course{TenantID: pred.TenantID(), Title: title, Status: status}
	err := s.db.QueryRow(ctx,
		`INSERT INTO courses (tenant_id, title, status) VALUES ($1, $2, $3)
		 RETURNING id, created_at`, c.TenantID, title, status,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return &c, nil
}
