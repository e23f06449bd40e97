package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/lmscore/internal/models"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

type countingLookup struct {
	statuses map[int64]models.TenantStatus
	err      error
	calls    int
}

func (l *countingLookup) TenantStatus(_ context.Context, id int64) (models.TenantStatus, error) {
	l.calls++
	if l.err != nil {
		return "", l.err
	}
	s, ok := l.statuses[id]
	if !ok {
		return "", tenant.ErrTenantNotFound
	}
	return s, nil
}

type results map[string]int

func (r results) RecordCacheResult(result string) { r[result]++ }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping: %v", err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestStatusLookupFallsThroughWhenRedisDown(t *testing.T) {
	c := qt.New(t)
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	next := &countingLookup{statuses: map[int64]models.TenantStatus{3: models.TenantTrial}}
	rec := results{}
	l := NewStatusLookup(NewCache(client, "lms:"), next, time.Minute, quietLogger(), rec)

	status, err := l.TenantStatus(context.Background(), 3)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, models.TenantTrial)
	c.Assert(next.calls, qt.Equals, 1)
	c.Assert(rec["error"], qt.Equals, 1)

	// The guard still sees a lookup failure as unverifiable, not inactive.
	next.err = errors.New("db down")
	err = tenant.NewGuard(l).VerifyActiveTenant(context.Background(), 3)
	c.Assert(err, qt.ErrorAs, new(*tenant.TenantVerificationError))
}

func TestStatusLookupReadThrough(t *testing.T) {
	client := newTestRedisClient(t)
	c := qt.New(t)

	next := &countingLookup{statuses: map[int64]models.TenantStatus{1: models.TenantActive}}
	rec := results{}
	l := NewStatusLookup(NewCache(client, "lms:test:"), next, time.Minute, quietLogger(), rec)
	ctx := context.Background()

	for range 3 {
		status, err := l.TenantStatus(ctx, 1)
		c.Assert(err, qt.IsNil)
		c.Assert(status, qt.Equals, models.TenantActive)
	}
	c.Assert(next.calls, qt.Equals, 1)
	c.Assert(rec, qt.DeepEquals, results{"miss": 1, "hit": 2})

	_, err := l.TenantStatus(ctx, 2)
	c.Assert(err, qt.ErrorIs, tenant.ErrTenantNotFound)
	_, err = l.TenantStatus(ctx, 2)
	c.Assert(err, qt.ErrorIs, tenant.ErrTenantNotFound)
	c.Assert(next.calls, qt.Equals, 3)
}
