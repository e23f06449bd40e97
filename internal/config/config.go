package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Bootstrap BootstrapConfig
	Realtime  RealtimeConfig
	Tenant    TenantConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Leeway    time.Duration
}

type BootstrapConfig struct {
	Enabled    bool
	AdminEmail string
	AdminName  string
}

type RealtimeConfig struct {
	AllowedOrigins   []string
	HandshakeTimeout time.Duration
	SendBuffer       int
	Channel          string // redis pub/sub channel for cross-node fan-out
}

type TenantConfig struct {
	StatusCacheTTL time.Duration
}

type MetricsConfig struct {
	Namespace string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	leeway, err := getEnvDuration("JWT_LEEWAY", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_LEEWAY: %w", err)
	}

	bootstrapEnabled, err := getEnvBool("BOOTSTRAP_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("invalid BOOTSTRAP_ENABLED: %w", err)
	}

	handshakeTimeout, err := getEnvDuration("REALTIME_HANDSHAKE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid REALTIME_HANDSHAKE_TIMEOUT: %w", err)
	}

	sendBuffer, err := getEnvInt("REALTIME_SEND_BUFFER", 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REALTIME_SEND_BUFFER: %w", err)
	}

	statusTTL, err := getEnvDuration("TENANT_STATUS_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TENANT_STATUS_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
			Leeway:    leeway,
		},
		Bootstrap: BootstrapConfig{
			Enabled:    bootstrapEnabled,
			AdminEmail: getEnv("BOOTSTRAP_ADMIN_EMAIL", "admin@lms.local"),
			AdminName:  getEnv("BOOTSTRAP_ADMIN_NAME", "Platform Administrator"),
		},
		Realtime: RealtimeConfig{
			AllowedOrigins:   splitList(getEnv("REALTIME_ALLOWED_ORIGINS", "")),
			HandshakeTimeout: handshakeTimeout,
			SendBuffer:       sendBuffer,
			Channel:          getEnv("REALTIME_CHANNEL", "lms:realtime"),
		},
		Tenant: TenantConfig{
			StatusCacheTTL: statusTTL,
		},
		Metrics: MetricsConfig{
			Namespace: getEnv("METRICS_NAMESPACE", "lms"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Bootstrap.Enabled && c.Bootstrap.AdminEmail == "" {
		missing = append(missing, "BOOTSTRAP_ADMIN_EMAIL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if c.Realtime.SendBuffer <= 0 {
		return fmt.Errorf("REALTIME_SEND_BUFFER must be positive, got %d", c.Realtime.SendBuffer)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
