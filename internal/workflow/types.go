package workflow

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/referrals/internal/audit"
)

// Candidate is a structured draft of the target resource.
type Candidate map[string]any

// Clone returns a deep copy of the candidate.
func (c Candidate) Clone() Candidate {
	if c == nil {
		return nil
	}
	return cloneValue(map[string]any(c)).(map[string]any)
}

// JSON encodes the candidate for audit snapshots.
func (c Candidate) JSON() (json.RawMessage, error) {
	return json.Marshal(c)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := maps.Clone(t)
		for k, val := range out {
			out[k] = cloneValue(val)
		}
		return out
	case Candidate:
		return map[string]any(t.Clone())
	case []any:
		out := slices.Clone(t)
		for i, val := range out {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// Violation is a (field path, reason) pair reported by the validator.
type Violation = audit.Violation

// ValidationResult is either a pass or a failure carrying the violations in
// the order the validator reported them.
type ValidationResult struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// Pass returns a passing ValidationResult.
func Pass() ValidationResult {
	return ValidationResult{Valid: true}
}

// Fail returns a failing ValidationResult with the given violations.
func Fail(violations ...Violation) ValidationResult {
	return ValidationResult{Violations: slices.Clone(violations)}
}

func (v ValidationResult) String() string {
	if v.Valid {
		return "pass"
	}
	parts := make([]string, len(v.Violations))
	for i, vi := range v.Violations {
		parts[i] = vi.Path + ": " + vi.Reason
	}
	return "fail[" + strings.Join(parts, "; ") + "]"
}

func (v ValidationResult) audit() *audit.Validation {
	return &audit.Validation{Valid: v.Valid, Violations: slices.Clone(v.Violations)}
}

// PatientRef is a resolved patient identity.
type PatientRef struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Display   string `json:"display,omitempty"`
}

// Hints are the optional structured inputs passed to the generator alongside
// the source text.
type Hints struct {
	Patient   *PatientRef
	Requester string
}

// Stage is a state of the orchestrator.
type Stage string

const (
	StageStart           Stage = "start"
	StageGenerating      Stage = "generating"
	StageValidating      Stage = "validating"
	StageFixing          Stage = "fixing"
	StageSubmitting      Stage = "submitting"
	StageRecordedSuccess Stage = "recorded-success"
	StageRecordedFailure Stage = "recorded-failure"
)

// Terminal reports whether no further transitions are possible.
func (s Stage) Terminal() bool {
	return s == StageRecordedSuccess || s == StageRecordedFailure
}

// FailureKind classifies terminal failures.
type FailureKind string

const (
	FailureExtraction     FailureKind = "extraction-failure"
	FailureGeneration     FailureKind = "generation-failure"
	FailureFix            FailureKind = "fix-failure"
	FailureRetryExhausted FailureKind = "retry-exhausted"
	FailureSubmission     FailureKind = "submission-failure"
)

// Context is the state threaded through every stage of a run. Values are
// never modified in place; Advance returns a new Context.
type Context struct {
	RunID      uuid.UUID
	SourceText string
	Patient    *PatientRef
	Candidate  Candidate
	Violations [][]Violation
	Attempts   int
	Stage      Stage
	Outcome    audit.Outcome
	Failure    *audit.Failure
	ResourceID string
}

// LastViolations returns the violations of the most recent validation.
func (c Context) LastViolations() []Violation {
	if len(c.Violations) == 0 {
		return nil
	}
	return c.Violations[len(c.Violations)-1]
}

// Input identifies the document for one run.
type Input struct {
	// RunID is generated when zero.
	RunID uuid.UUID
	// Document is the path of the source document.
	Document string
	// InputRef is recorded on the audit record; defaults to Document.
	InputRef string
	// Email triggers an identity lookup when set.
	Email string
	// SourceText skips extraction when set.
	SourceText string
}

func (in Input) ref() string {
	if in.InputRef != "" {
		return in.InputRef
	}
	return in.Document
}

// Result is the terminal state of a run.
type Result struct {
	Context Context
	Record  *audit.Record
	// AuditErr is set when the sealed record could not be persisted. It never
	// changes the outcome.
	AuditErr error
}

// Posted reports whether the run ended in Recorded-Success.
func (r *Result) Posted() bool {
	return r.Context.Outcome.Success()
}
