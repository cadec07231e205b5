// Package fhir validates and persists ServiceRequest candidates against a
// FHIR R5 server. Client satisfies workflow.Validator and workflow.Submitter.
package fhir

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JaimeStill/referrals/internal/workflow"
	"github.com/JaimeStill/referrals/pkg/formatting"
)

const (
	ContentType  = "application/fhir+json"
	maxBodyBytes = 1 << 20
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a client for the server rooted at baseURL. A zero timeout
// leaves deadlines to the caller's context.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With("system", "fhir"),
	}
}

// Validate runs Precheck and, when it passes, the server's $validate
// operation. The returned error is set only when the server could not be
// reached.
func (c *Client) Validate(ctx context.Context, candidate workflow.Candidate) (workflow.ValidationResult, error) {
	if violations := Precheck(candidate); len(violations) > 0 {
		c.logger.DebugContext(ctx, "precheck failed", "violations", len(violations))
		return workflow.Fail(violations...), nil
	}

	status, body, _, err := c.post(ctx, "/"+resourceType+"/$validate", candidate)
	if err != nil {
		return workflow.ValidationResult{}, fmt.Errorf("validate: %w", err)
	}

	outcome, ok := decodeOutcome(body)
	if ok {
		if violations := outcome.Violations(); len(violations) > 0 {
			return workflow.Fail(violations...), nil
		}
	}

	if status < 200 || status > 299 {
		return workflow.Fail(workflow.Violation{
			Path:   "$",
			Reason: fmt.Sprintf("HTTP %d: %s", status, snippet(body)),
		}), nil
	}

	return workflow.Pass(), nil
}

// Submit creates the ServiceRequest and returns the server-assigned id, read
// from the response body or, failing that, the Location header.
func (c *Client) Submit(ctx context.Context, candidate workflow.Candidate) (string, error) {
	status, body, header, err := c.post(ctx, "/"+resourceType, candidate)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}

	if status != http.StatusOK && status != http.StatusCreated {
		diag := snippet(body)
		if outcome, ok := decodeOutcome(body); ok && outcome.Summary() != "" {
			diag = outcome.Summary()
		}
		return "", &SubmissionError{Status: status, Diagnostics: diag}
	}

	var created struct {
		ID string `json:"id"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &created); err != nil {
			c.logger.WarnContext(ctx, "create response is not json", "error", err)
		}
	}

	id := created.ID
	if id == "" {
		id = idFromLocation(header.Get("Location"))
	}
	if id == "" {
		return "", ErrMissingID
	}

	c.logger.InfoContext(ctx, "service request created", "id", id, "status", status)
	return id, nil
}

func (c *Client) post(ctx context.Context, path string, candidate workflow.Candidate) (int, []byte, http.Header, error) {
	payload, err := json.Marshal(candidate)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("encode resource: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("Accept", ContentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, body, resp.Header, nil
}

// idFromLocation extracts the logical id from a Location such as
// http://host/fhir/ServiceRequest/123/_history/1.
func idFromLocation(location string) string {
	if location == "" {
		return ""
	}
	if u, err := url.Parse(location); err == nil {
		location = u.Path
	}

	segments := strings.Split(strings.Trim(location, "/"), "/")
	for i, s := range segments {
		if s == resourceType && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}

func snippet(body []byte) string {
	return formatting.Truncate(strings.TrimSpace(string(body)), 300)
}
