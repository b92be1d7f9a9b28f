package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/luminoshop/cartsync/pkg/enums"
)

type Config struct {
	App       AppConfig
	Upstream  UpstreamConfig
	Snapshot  SnapshotConfig
	Redis     RedisConfig
	Broadcast BroadcastConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Snapshot.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARTSYNC_APP_ENV" default:"dev"`
	Port         string `envconfig:"CARTSYNC_APP_PORT" default:"8091"`
	LogLevel     string `envconfig:"CARTSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARTSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// UpstreamConfig points the engine at the authoritative cart API.
type UpstreamConfig struct {
	BaseURL       string        `envconfig:"CARTSYNC_UPSTREAM_BASE_URL" required:"true"`
	Timeout       time.Duration `envconfig:"CARTSYNC_UPSTREAM_TIMEOUT" default:"10s"`
	SessionHeader string        `envconfig:"CARTSYNC_UPSTREAM_SESSION_HEADER" default:"X-Cart-Session"`
	SessionID     string        `envconfig:"CARTSYNC_UPSTREAM_SESSION_ID"`
}

// SnapshotConfig selects and tunes the durable local snapshot store.
type SnapshotConfig struct {
	Backend    string `envconfig:"CARTSYNC_SNAPSHOT_BACKEND" default:"sqlite"`
	SQLitePath string `envconfig:"CARTSYNC_SNAPSHOT_SQLITE_PATH" default:"cartsync.db"`
	ProfileID  string `envconfig:"CARTSYNC_SNAPSHOT_PROFILE_ID" default:"default"`
}

func (s SnapshotConfig) validate() error {
	_, err := s.ParseBackend()
	return err
}

// ParseBackend returns the configured backend as a typed value.
func (s SnapshotConfig) ParseBackend() (enums.SnapshotBackend, error) {
	return enums.ParseSnapshotBackend(strings.ToLower(strings.TrimSpace(s.Backend)))
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTSYNC_REDIS_URL"`
	Address      string        `envconfig:"CARTSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"CARTSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether any redis endpoint was provided.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

// BroadcastConfig tunes the cross-client badge fan-out.
type BroadcastConfig struct {
	DebounceWindow time.Duration `envconfig:"CARTSYNC_BROADCAST_DEBOUNCE" default:"200ms"`
	RedisChannel   string        `envconfig:"CARTSYNC_BROADCAST_REDIS_CHANNEL" default:"cartsync:badge"`
}
