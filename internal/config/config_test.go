package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JaimeStill/referrals/internal/config"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(config.EnvAgentProviderName, "ollama")
	t.Setenv(config.EnvAgentModelName, "llama3")

	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	checks := []struct {
		name      string
		got, want any
	}{
		{"fhir url", cfg.Services.FHIRURL, "http://localhost:8080/fhir"},
		{"extraction url", cfg.Services.ExtractionURL, "http://localhost:7001"},
		{"identity url", cfg.Services.IdentityURL, "http://localhost:7002"},
		{"max fixes", cfg.Workflow.MaxFixAttempts, 3},
		{"batch concurrency", cfg.Workflow.BatchConcurrency, 4},
		{"audit backend", cfg.Audit.Backend, "file"},
		{"audit path", cfg.Audit.Path, "./data/audit.jsonl"},
		{"base path", cfg.Server.BasePath, "/api"},
		{"page size", cfg.Pagination.DefaultPageSize, 20},
		{"agent name", cfg.Agent.Name, "referral-drafter"},
		{"shutdown", cfg.ShutdownTimeoutDuration(), 30 * time.Second},
		{"level", cfg.Level(), slog.LevelInfo},
		{"storage", cfg.Storage.Enabled(), false},
		{"env", cfg.Env(), "local"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if cfg.Services.MaxDocumentSizeBytes() != 25*1024*1024 {
		t.Errorf("max document size = %d", cfg.Services.MaxDocumentSizeBytes())
	}
}

func TestLoadFileOverlayAndEnv(t *testing.T) {
	dir := t.TempDir()
	base := writeConfig(t, dir, "config.toml", `
log_level = "debug"

[agent]
name = "drafter"

[agent.provider]
name = "ollama"
base_url = "http://localhost:11434"

[agent.model]
name = "llama3"

[services]
fhir_url = "http://fhir.internal/fhir"
timeout = "10s"

[workflow]
requester = "Practitioner/dr-1"
stage_timeout = "45s"

[audit]
backend = "memory"
`)
	writeConfig(t, dir, "config.staging.toml", `
[services]
fhir_url = "https://fhir.staging/fhir"

[workflow]
batch_concurrency = 8
`)

	t.Setenv(config.EnvReferralsEnv, "staging")
	t.Setenv(config.EnvWorkflowMaxFixAttempts, "2")
	t.Setenv(config.EnvAuditPath, "/var/lib/referrals/audit.jsonl")

	cfg, err := config.LoadFile(base)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Services.FHIRURL != "https://fhir.staging/fhir" {
		t.Errorf("fhir url = %q, overlay not applied", cfg.Services.FHIRURL)
	}
	if cfg.Services.TimeoutDuration() != 10*time.Second {
		t.Errorf("timeout = %v", cfg.Services.TimeoutDuration())
	}
	if cfg.Workflow.BatchConcurrency != 8 || cfg.Workflow.MaxFixAttempts != 2 {
		t.Errorf("workflow = %+v", cfg.Workflow)
	}
	if cfg.Workflow.StageTimeoutDuration() != 45*time.Second || cfg.Workflow.Requester != "Practitioner/dr-1" {
		t.Errorf("workflow = %+v", cfg.Workflow)
	}
	if cfg.Audit.Backend != "memory" || cfg.Audit.Path != "/var/lib/referrals/audit.jsonl" {
		t.Errorf("audit = %+v", cfg.Audit)
	}
	if cfg.Agent.Name != "drafter" || cfg.Agent.Model.Name != "llama3" {
		t.Errorf("agent = %s / %v", cfg.Agent.Name, cfg.Agent.Model)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("level = %v", cfg.Level())
	}
}

func TestLoadFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{"bad toml", "log_level = [", nil},
		{"bad log level", `log_level = "loud"`, nil},
		{"bad backend", "[audit]\nbackend = \"sqlite\"", nil},
		{"bad fhir url", "[services]\nfhir_url = \"localhost\"", nil},
		{"bad document size", "[services]\nmax_document_size = \"big\"", nil},
		{"bad stage timeout", "[workflow]\nstage_timeout = \"soon\"", nil},
		{"negative fixes", "", map[string]string{config.EnvWorkflowMaxFixAttempts: "-1"}},
		{"fixes above ceiling", "", map[string]string{config.EnvWorkflowMaxFixAttempts: "10"}},
		{"file fixes above ceiling", "[workflow]\nmax_fix_attempts = 4", nil},
		{"bad port", "[server]\nport = 70000", nil},
		{"bad base path", "[server]\nbase_path = \"api\"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(config.EnvAgentProviderName, "ollama")
			t.Setenv(config.EnvAgentModelName, "llama3")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := writeConfig(t, t.TempDir(), "config.toml", tt.content)
			if _, err := config.LoadFile(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := config.ServerConfig{Host: "127.0.0.1", Port: 9000}
	if s.Addr() != "127.0.0.1:9000" {
		t.Errorf("addr = %q", s.Addr())
	}
}
