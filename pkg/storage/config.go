package storage

import (
	"fmt"
	"os"
)

// Config holds Azure Blob Storage connection parameters. Storage is optional:
// an empty connection string leaves it disabled.
type Config struct {
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ContainerName    string
	ConnectionString string
}

// Enabled reports whether a connection string has been configured.
func (c *Config) Enabled() bool {
	return c.ConnectionString != ""
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.ContainerName == "" {
		c.ContainerName = "referrals"
	}
	if env != nil {
		if v := os.Getenv(env.ContainerName); env.ContainerName != "" && v != "" {
			c.ContainerName = v
		}
		if v := os.Getenv(env.ConnectionString); env.ConnectionString != "" && v != "" {
			c.ConnectionString = v
		}
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
}

func (c *Config) validate() error {
	if len(c.ContainerName) < 3 || len(c.ContainerName) > 63 {
		return fmt.Errorf("container_name must be 3-63 characters: %q", c.ContainerName)
	}
	return nil
}
