package storage_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/JaimeStill/referrals/pkg/storage"
)

const azuriteConn = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func TestKey(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"referrals", "run-1", "doc.pdf"}, "referrals/run-1/doc.pdf"},
		{[]string{"/audit/", "run-1.json"}, "audit/run-1.json"},
		{[]string{"", "a", ""}, "a"},
	}

	for _, tt := range tests {
		if got := storage.Key(tt.parts...); got != tt.want {
			t.Errorf("Key(%v) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}

func TestNewDisabled(t *testing.T) {
	cfg := &storage.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.Enabled() {
		t.Fatal("storage enabled without connection string")
	}

	_, err := storage.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if !errors.Is(err, storage.ErrDisabled) {
		t.Fatalf("New = %v, want ErrDisabled", err)
	}
}

func TestKeyValidation(t *testing.T) {
	cfg := &storage.Config{ConnectionString: azuriteConn}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	sys, err := storage.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := t.Context()

	if _, err := sys.Exists(ctx, ""); !errors.Is(err, storage.ErrEmptyKey) {
		t.Errorf("Exists(\"\") = %v, want ErrEmptyKey", err)
	}
	if _, err := sys.Download(ctx, "referrals/../secret"); !errors.Is(err, storage.ErrInvalidKey) {
		t.Errorf("Download(traversal) = %v, want ErrInvalidKey", err)
	}
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("TEST_STORAGE_CONTAINER", "archive")
	t.Setenv("TEST_STORAGE_CONN", azuriteConn)

	cfg := &storage.Config{}
	env := &storage.Env{ContainerName: "TEST_STORAGE_CONTAINER", ConnectionString: "TEST_STORAGE_CONN"}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if cfg.ContainerName != "archive" || !cfg.Enabled() {
		t.Errorf("cfg = %+v", cfg)
	}
}
