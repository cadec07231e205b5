package infrastructure_test

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/referrals/internal/config"
	"github.com/JaimeStill/referrals/internal/infrastructure"
)

func loadConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	t.Setenv(config.EnvAgentProviderName, "ollama")
	t.Setenv(config.EnvAgentModelName, "llama3")
	t.Setenv(config.EnvAuditBackend, backend)

	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestNewOptionalSystems(t *testing.T) {
	tests := []struct {
		backend  string
		database bool
	}{
		{"file", false},
		{"memory", false},
		{"postgres", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			infra, err := infrastructure.New(loadConfig(t, tt.backend))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if (infra.Database != nil) != tt.database {
				t.Errorf("database present = %v, want %v", infra.Database != nil, tt.database)
			}
			if infra.Storage != nil {
				t.Error("storage created without a connection string")
			}
			if err := infra.Start(); err != nil {
				t.Errorf("Start: %v", err)
			}
		})
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := infrastructure.NewLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown", "run_id", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "run_id=abc") {
		t.Errorf("output = %q", out)
	}
}
