package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/referrals/internal/audit"
)

const (
	EnvAuditBackend = "REFERRALS_AUDIT_BACKEND"
	EnvAuditPath    = "REFERRALS_AUDIT_PATH"
)

// AuditConfig selects where sealed records are kept.
type AuditConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

func (c *AuditConfig) Finalize() error {
	if c.Backend == "" {
		c.Backend = string(audit.BackendFile)
	}
	if c.Path == "" {
		c.Path = "./data/audit.jsonl"
	}
	if v := os.Getenv(EnvAuditBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvAuditPath); v != "" {
		c.Path = v
	}

	switch audit.Backend(c.Backend) {
	case audit.BackendFile, audit.BackendPostgres, audit.BackendMemory:
		return nil
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
}

func (c *AuditConfig) Merge(overlay *AuditConfig) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
}
