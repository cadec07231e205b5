package tools_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/JaimeStill/referrals/internal/audit"
	"github.com/JaimeStill/referrals/internal/referrals"
	"github.com/JaimeStill/referrals/internal/tools"
	"github.com/JaimeStill/referrals/internal/workflow"
)

type stub struct{}

func (stub) Extract(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}

func (stub) Generate(ctx context.Context, text string, h workflow.Hints) (workflow.Candidate, error) {
	return workflow.Candidate{"resourceType": "ServiceRequest"}, nil
}

func (stub) Fix(ctx context.Context, c workflow.Candidate, v []workflow.Violation) (workflow.Candidate, error) {
	return c, nil
}

func (stub) Validate(ctx context.Context, c workflow.Candidate) (workflow.ValidationResult, error) {
	return workflow.Pass(), nil
}

func (stub) Submit(ctx context.Context, c workflow.Candidate) (string, error) {
	return "42", nil
}

func newServer(t *testing.T) *tools.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := &workflow.Runtime{
		Extractor: stub{},
		Generator: stub{},
		Rewriter:  stub{},
		Validator: stub{},
		Submitter: stub{},
		Audit:     audit.NewMemoryStore(),
		Policy:    workflow.Policy{MaxFixes: workflow.DefaultMaxFixes},
		Logger:    logger,
	}
	return tools.New(referrals.New(rt, nil, 1, logger), "test", logger)
}

func call(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty result content")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, not TextContent", result.Content[0])
	}
	return tc.Text
}

func TestProcessReferralThenGetAuditRecord(t *testing.T) {
	s := newServer(t)
	doc := filepath.Join(t.TempDir(), "referral.txt")
	if err := os.WriteFile(doc, []byte("cardiology consult"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := s.HandleProcessReferral(context.Background(), call(tools.ToolProcessReferral, map[string]interface{}{
		"document_path": doc,
	}))
	if err != nil {
		t.Fatalf("HandleProcessReferral: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", text(t, result))
	}

	var summary referrals.RunSummary
	if err := json.Unmarshal([]byte(text(t, result)), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Outcome != audit.OutcomePosted || summary.ResourceID == nil || *summary.ResourceID != "42" {
		t.Errorf("summary = %+v", summary)
	}

	found, err := s.HandleGetAuditRecord(context.Background(), call(tools.ToolGetAuditRecord, map[string]interface{}{
		"run_id": summary.RunID.String(),
	}))
	if err != nil {
		t.Fatalf("HandleGetAuditRecord: %v", err)
	}

	var rec audit.Record
	if err := json.Unmarshal([]byte(text(t, found)), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.RunID != summary.RunID || rec.Digest != summary.Digest {
		t.Errorf("record = %s %s", rec.RunID, rec.Digest)
	}
	if err := rec.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestToolArgumentErrors(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
		want    string
	}{
		{"missing document", s.HandleProcessReferral, map[string]interface{}{}, "document_path"},
		{"missing run id", s.HandleGetAuditRecord, map[string]interface{}{}, "run_id"},
		{"malformed run id", s.HandleGetAuditRecord, map[string]interface{}{"run_id": "abc"}, "invalid run_id"},
		{"unknown run id", s.HandleGetAuditRecord, map[string]interface{}{"run_id": uuid.NewString()}, "no audit record"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(context.Background(), call("", tt.args))
			if err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected tool error result")
			}
			if msg := text(t, result); !strings.Contains(msg, tt.want) {
				t.Errorf("message = %q, want it to mention %q", msg, tt.want)
			}
		})
	}
}
