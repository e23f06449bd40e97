package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/lmscore/internal/models"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

const (
	ActionAccessDenied = "access_denied"
	ActionEventDropped = "realtime_event_dropped"
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type LogEntry struct {
	TenantID     *int64
	PrincipalID  *int64
	Action       string
	ResourceType string
	Details      map[string]interface{}
	IPAddress    string
	OccurredAt   time.Time
}

func (s *Service) Log(ctx context.Context, entry LogEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	var ip *netip.Addr
	if entry.IPAddress != "" {
		parsed, err := netip.ParseAddr(entry.IPAddress)
		if err == nil {
			ip = &parsed
		}
	}

	occurred := entry.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO audit_logs (tenant_id, principal_id, action, resource_type, details, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.TenantID, entry.PrincipalID, entry.Action, entry.ResourceType, details, ip, occurred,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	return nil
}

type AuditQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Action    string
	Limit     int
	Offset    int
}

// List returns the audit trail of the predicate's tenant, newest first.
func (s *Service) List(ctx context.Context, pred tenant.Predicate, q AuditQuery) ([]models.AuditLog, error) {
	if !pred.Valid() {
		return nil, tenant.ErrUnscoped
	}
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 50
	}

	where, args := pred.Where(1)
	query := `SELECT id, tenant_id, principal_id, action, resource_type, details, COALESCE(host(ip_address), ''), created_at
			  FROM audit_logs WHERE ` + where
	argIdx := len(args) + 1

	if q.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, q.Action)
		argIdx++
	}
	if q.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *q.StartDate)
		argIdx++
	}
	if q.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *q.EndDate)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.TenantID, &l.PrincipalID, &l.Action, &l.ResourceType, &l.Details, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
