// Package tools exposes referral processing and audit reads as MCP tools
// over stdio.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/JaimeStill/referrals/internal/audit"
	"github.com/JaimeStill/referrals/internal/referrals"
)

const (
	ToolProcessReferral = "process_referral"
	ToolGetAuditRecord  = "get_audit_record"
)

type Server struct {
	mcp    *server.MCPServer
	sys    referrals.System
	logger *slog.Logger
}

// New creates the MCP server and registers its tools.
func New(sys referrals.System, version string, logger *slog.Logger) *Server {
	s := &Server{
		mcp: server.NewMCPServer(
			"referrals",
			version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		sys:    sys,
		logger: logger.With("system", "tools"),
	}

	s.mcp.AddTool(
		mcp.NewTool(
			ToolProcessReferral,
			mcp.WithDescription("Convert a referral document into a validated FHIR ServiceRequest and post it. Returns the run summary."),
			mcp.WithString("document_path", mcp.Required(), mcp.Description("Path to a PDF, text, or markdown referral")),
			mcp.WithString("patient_email", mcp.Description("Patient email used for the EMPI lookup")),
		),
		s.HandleProcessReferral,
	)

	s.mcp.AddTool(
		mcp.NewTool(
			ToolGetAuditRecord,
			mcp.WithDescription("Return the sealed audit record of a referral run."),
			mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier (UUID)")),
		),
		s.HandleGetAuditRecord,
	)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve blocks serving stdio until the client disconnects.
func (s *Server) Serve() error {
	s.logger.Info("serving mcp over stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) HandleProcessReferral(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("document_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := referrals.Request{
		Document: path,
		Email:    request.GetString("patient_email", ""),
	}

	result, err := s.sys.Process(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "process_referral failed", "document", path, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(referrals.Summarize(path, result))
}

func (s *Server) HandleGetAuditRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	runID, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid run_id %q", raw)), nil
	}

	rec, err := s.sys.Audit().Find(ctx, runID)
	if errors.Is(err, audit.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no audit record for run %s", runID)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("find audit record: %w", err)
	}

	return jsonResult(rec)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
