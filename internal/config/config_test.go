package config

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestLoadDefaults(t *testing.T) {
	c := qt.New(t)
	c.Setenv("SERVER_PORT", "")
	c.Setenv("REALTIME_ALLOWED_ORIGINS", "")
	c.Setenv("TENANT_STATUS_CACHE_TTL", "")

	cfg, err := Load()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Server.Port, qt.Equals, 8080)
	c.Assert(cfg.Tenant.StatusCacheTTL, qt.Equals, 30*time.Second)
	c.Assert(cfg.Realtime.AllowedOrigins, qt.IsNil)
	c.Assert(cfg.Realtime.Channel, qt.Equals, "lms:realtime")
}

func TestLoadOverrides(t *testing.T) {
	c := qt.New(t)
	c.Setenv("SERVER_PORT", "9090")
	c.Setenv("REALTIME_ALLOWED_ORIGINS", "app.example.com, admin.example.com ,")
	c.Setenv("JWT_LEEWAY", "5s")

	cfg, err := Load()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Addr(), qt.Equals, "0.0.0.0:9090")
	c.Assert(cfg.Realtime.AllowedOrigins, qt.DeepEquals, []string{"app.example.com", "admin.example.com"})
	c.Assert(cfg.Auth.Leeway, qt.Equals, 5*time.Second)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SERVER_PORT", "eighty"},
		{"BOOTSTRAP_ENABLED", "maybe"},
		{"TENANT_STATUS_CACHE_TTL", "30"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			c := qt.New(t)
			c.Setenv(tt.key, tt.value)
			_, err := Load()
			c.Assert(err, qt.ErrorMatches, "invalid "+tt.key+".*")
		})
	}
}

func TestValidate(t *testing.T) {
	c := qt.New(t)

	cfg := &Config{Bootstrap: BootstrapConfig{Enabled: true}, Realtime: RealtimeConfig{SendBuffer: 1}}
	c.Assert(cfg.Validate(), qt.ErrorMatches, "missing required env vars: DATABASE_URL, JWT_SECRET, BOOTSTRAP_ADMIN_EMAIL")

	cfg.Database.URL = "postgres://localhost/lms"
	cfg.Auth.JWTSecret = "s3cret"
	cfg.Bootstrap.AdminEmail = "root@lms.local"
	c.Assert(cfg.Validate(), qt.IsNil)

	cfg.Realtime.SendBuffer = 0
	c.Assert(cfg.Validate(), qt.ErrorMatches, "REALTIME_SEND_BUFFER must be positive.*")
}
