// Package drafting implements the Draft Generator and Corrective Rewriter
// over a chat model. Both compose a stage prompt, send it through a Client,
// and parse the first JSON object out of the reply.
package drafting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/referrals/internal/workflow"
	"github.com/JaimeStill/referrals/pkg/formatting"
)

// Client sends a single prompt to a model and returns its text reply.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type agentClient struct {
	agent agent.Agent
}

// NewAgentClient builds a Client backed by a go-agents agent.
func NewAgentClient(cfg *gaconfig.AgentConfig) (Client, error) {
	a, err := agent.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return &agentClient{agent: a}, nil
}

func (c *agentClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.agent.Chat(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("chat call: %w", err)
	}
	return resp.Content(), nil
}

// Drafter satisfies workflow.Generator and workflow.Rewriter.
type Drafter struct {
	client Client
	logger *slog.Logger
}

func New(client Client, logger *slog.Logger) *Drafter {
	return &Drafter{
		client: client,
		logger: logger.With("system", "drafting"),
	}
}

// Generate drafts a ServiceRequest from referral text. A resolved patient
// or configured requester from hints is pinned onto the draft.
func (d *Drafter) Generate(ctx context.Context, text string, hints workflow.Hints) (workflow.Candidate, error) {
	sections := []Section{{Title: "Referral document", Body: text}}

	if hints.Patient != nil {
		s, err := JSONSection("Patient reference", hints.Patient)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	if hints.Requester != "" {
		sections = append(sections, Section{Title: "Requester reference", Body: hints.Requester})
	}

	candidate, err := d.complete(ctx, StageGenerate, sections)
	if err != nil {
		return nil, err
	}

	pin(candidate, hints)
	return candidate, nil
}

// Fix rewrites candidate so that it resolves violations.
func (d *Drafter) Fix(ctx context.Context, candidate workflow.Candidate, violations []workflow.Violation) (workflow.Candidate, error) {
	current, err := JSONSection("Current resource", candidate)
	if err != nil {
		return nil, err
	}

	sections := []Section{
		current,
		{Title: "Validation violations", Body: FormatViolations(violations)},
	}

	return d.complete(ctx, StageFix, sections)
}

func (d *Drafter) complete(ctx context.Context, stage Stage, sections []Section) (workflow.Candidate, error) {
	prompt, err := ComposePrompt(stage, sections...)
	if err != nil {
		return nil, err
	}

	reply, err := d.client.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stage, err)
	}
	if strings.TrimSpace(reply) == "" {
		return nil, fmt.Errorf("%s: %w", stage, ErrEmptyResponse)
	}

	parsed, err := formatting.Parse[map[string]any](reply)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stage, err)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("%s: %w", stage, ErrEmptyResponse)
	}

	if rt, ok := parsed["resourceType"]; ok && rt != "ServiceRequest" {
		return nil, fmt.Errorf("%s: %w: resourceType %v", stage, ErrNotResource, rt)
	}

	d.logger.DebugContext(ctx, "model reply parsed", "stage", stage, "fields", len(parsed))
	return workflow.Candidate(parsed), nil
}

// FormatViolations renders one violation per line as "- path: reason".
func FormatViolations(violations []workflow.Violation) string {
	var sb strings.Builder
	for i, v := range violations {
		if i > 0 {
			sb.WriteByte('\n')
		}
		path := v.Path
		if path == "" {
			path = "$"
		}
		fmt.Fprintf(&sb, "- %s: %s", path, v.Reason)
	}
	return sb.String()
}

func pin(c workflow.Candidate, hints workflow.Hints) {
	if hints.Patient != nil && hints.Patient.Reference != "" {
		subject := map[string]any{"reference": hints.Patient.Reference}
		if hints.Patient.Display != "" {
			subject["display"] = hints.Patient.Display
		}
		c["subject"] = subject
	}
	if hints.Requester != "" {
		if _, ok := c["requester"]; !ok {
			c["requester"] = map[string]any{"reference": hints.Requester}
		}
	}
}
