// Package identity resolves patients through the enterprise master patient
// index (EMPI) by email address.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JaimeStill/referrals/internal/workflow"
)

var ErrLookup = errors.New("patient lookup failed")

// Patient is the EMPI view of a patient.
type Patient struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Ref converts the patient into the reference pinned on drafts.
func (p Patient) Ref() *workflow.PatientRef {
	return &workflow.PatientRef{
		ID:        p.ID,
		Reference: "Patient/" + p.ID,
		Display:   p.Name,
	}
}

type lookupResponse struct {
	Success bool     `json:"success"`
	Patient *Patient `json:"patient"`
	Error   string   `json:"error"`
}

// Client satisfies workflow.IdentityResolver.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With("system", "identity"),
	}
}

// Lookup returns the EMPI patient for email, or workflow.ErrPatientNotFound.
func (c *Client) Lookup(ctx context.Context, email string) (*Patient, error) {
	endpoint := c.baseURL + "/patient?" + url.Values{"email": {email}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrLookup, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, workflow.ErrPatientNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrLookup, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var r lookupResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrLookup, err)
	}

	if !r.Success {
		if r.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrLookup, r.Error)
		}
		return nil, workflow.ErrPatientNotFound
	}
	if r.Patient == nil || r.Patient.ID == "" {
		return nil, workflow.ErrPatientNotFound
	}

	return r.Patient, nil
}

// Resolve looks the patient up and returns its reference.
func (c *Client) Resolve(ctx context.Context, email string) (*workflow.PatientRef, error) {
	p, err := c.Lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "patient resolved", "patient_id", p.ID)
	return p.Ref(), nil
}
