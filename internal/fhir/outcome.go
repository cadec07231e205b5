package fhir

import (
	"encoding/json"
	"strings"

	"github.com/JaimeStill/referrals/internal/workflow"
)

// OperationOutcome is the subset of the FHIR resource the client inspects.
type OperationOutcome struct {
	ResourceType string  `json:"resourceType"`
	Issue        []Issue `json:"issue"`
}

type Issue struct {
	Severity    string           `json:"severity"`
	Code        string           `json:"code"`
	Details     *CodeableConcept `json:"details,omitempty"`
	Diagnostics string           `json:"diagnostics,omitempty"`
	Expression  []string         `json:"expression,omitempty"`
	Location    []string         `json:"location,omitempty"`
}

type CodeableConcept struct {
	Text string `json:"text,omitempty"`
}

// Blocking reports whether the issue fails validation.
func (i Issue) Blocking() bool {
	return i.Severity == "error" || i.Severity == "fatal"
}

// Violation converts the issue into a workflow violation.
func (i Issue) Violation() workflow.Violation {
	path := "$"
	switch {
	case len(i.Expression) > 0:
		path = i.Expression[0]
	case len(i.Location) > 0:
		path = i.Location[0]
	}

	reason := i.Diagnostics
	if reason == "" && i.Details != nil {
		reason = i.Details.Text
	}
	if reason == "" {
		reason = "unspecified " + i.Code + " issue"
	}

	return workflow.Violation{Path: path, Reason: reason}
}

// Violations returns the blocking issues as violations.
func (o OperationOutcome) Violations() []workflow.Violation {
	var out []workflow.Violation
	for _, i := range o.Issue {
		if i.Blocking() {
			out = append(out, i.Violation())
		}
	}
	return out
}

// Summary joins the reasons of blocking issues.
func (o OperationOutcome) Summary() string {
	var reasons []string
	for _, v := range o.Violations() {
		reasons = append(reasons, v.Reason)
	}
	return strings.Join(reasons, "; ")
}

// decodeOutcome returns the outcome in body, if body is one.
func decodeOutcome(body []byte) (OperationOutcome, bool) {
	var o OperationOutcome
	if err := json.Unmarshal(body, &o); err != nil {
		return OperationOutcome{}, false
	}
	return o, o.ResourceType == "OperationOutcome"
}
