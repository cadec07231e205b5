package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/referrals/pkg/database"
	"github.com/JaimeStill/referrals/pkg/pagination"
	"github.com/JaimeStill/referrals/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvReferralsEnv             = "REFERRALS_ENV"
	EnvReferralsShutdownTimeout = "REFERRALS_SHUTDOWN_TIMEOUT"
	EnvReferralsVersion         = "REFERRALS_VERSION"
	EnvReferralsLogLevel        = "REFERRALS_LOG_LEVEL"
)

var databaseEnv = &database.Env{
	Host:            "REFERRALS_DB_HOST",
	Port:            "REFERRALS_DB_PORT",
	Name:            "REFERRALS_DB_NAME",
	User:            "REFERRALS_DB_USER",
	Password:        "REFERRALS_DB_PASSWORD",
	SSLMode:         "REFERRALS_DB_SSL_MODE",
	MaxOpenConns:    "REFERRALS_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "REFERRALS_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "REFERRALS_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "REFERRALS_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "REFERRALS_STORAGE_CONTAINER_NAME",
	ConnectionString: "REFERRALS_STORAGE_CONNECTION_STRING",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "REFERRALS_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "REFERRALS_PAGINATION_MAX_PAGE_SIZE",
}

// Config is the root configuration for the referrals service.
type Config struct {
	Agent      gaconfig.AgentConfig `toml:"agent"`
	Services   ServicesConfig       `toml:"services"`
	Workflow   WorkflowConfig       `toml:"workflow"`
	Audit      AuditConfig          `toml:"audit"`
	Server     ServerConfig         `toml:"server"`
	Database   database.Config      `toml:"database"`
	Storage    storage.Config       `toml:"storage"`
	Pagination pagination.Config    `toml:"pagination"`

	ShutdownTimeout string `toml:"shutdown_timeout"`
	Version         string `toml:"version"`
	LogLevel        string `toml:"log_level"`
}

// Env returns the REFERRALS_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvReferralsEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Level returns LogLevel as an slog level.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads config.toml from the working directory. See LoadFile.
func Load() (*Config, error) {
	return LoadFile(BaseConfigFile)
}

// LoadFile reads the base config at path (if present), applies the
// environment overlay that sits next to it, and finalizes all values. If no
// base file exists, defaults and environment variables provide all
// configuration.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if overlay := overlayPath(filepath.Dir(path)); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	c.Agent.Merge(&overlay.Agent)
	c.Services.Merge(&overlay.Services)
	c.Workflow.Merge(&overlay.Workflow)
	c.Audit.Merge(&overlay.Audit)
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"agent", func() error { return FinalizeAgent(&c.Agent) }},
		{"services", c.Services.Finalize},
		{"workflow", c.Workflow.Finalize},
		{"audit", c.Audit.Finalize},
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"pagination", func() error { return c.Pagination.Finalize(paginationEnv) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvReferralsShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvReferralsVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvReferralsLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvReferralsEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
