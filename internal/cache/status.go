package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/nikhilbhutani/lmscore/internal/models"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

// ResultRecorder counts cache hits, misses and errors.
type ResultRecorder interface {
	RecordCacheResult(result string)
}

// StatusLookup is a read-through cache in front of a tenant.StatusLookup.
// Redis failures fall through to the backing lookup, and lookup errors
// (including ErrTenantNotFound) are never cached.
type StatusLookup struct {
	cache    *Cache
	next     tenant.StatusLookup
	ttl      time.Duration
	logger   *slog.Logger
	recorder ResultRecorder
}

func NewStatusLookup(c *Cache, next tenant.StatusLookup, ttl time.Duration, logger *slog.Logger, rec ResultRecorder) *StatusLookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusLookup{cache: c, next: next, ttl: ttl, logger: logger, recorder: rec}
}

func (s *StatusLookup) TenantStatus(ctx context.Context, tenantID int64) (models.TenantStatus, error) {
	key := statusKey(tenantID)

	var status models.TenantStatus
	err := s.cache.Get(ctx, key, &status)
	switch {
	case err == nil && status.Valid():
		s.record("hit")
		return status, nil
	case err == nil, errors.Is(err, ErrMiss):
		s.record("miss")
	default:
		s.record("error")
		s.logger.Warn("tenant status cache unavailable", "tenant_id", tenantID, "error", err)
	}

	status, err = s.next.TenantStatus(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, key, status, s.ttl); err != nil {
		s.logger.Warn("tenant status cache write failed", "tenant_id", tenantID, "error", err)
	}
	return status, nil
}

func (s *StatusLookup) record(result string) {
	if s.recorder != nil {
		s.recorder.RecordCacheResult(result)
	}
}

func statusKey(tenantID int64) string {
	return "tenant:status:" + strconv.FormatInt(tenantID, 10)
}
