// Package audit holds the sealed, append-only record of each referral run and
// the stores that persist it.
package audit

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/referrals/pkg/canonical"
)

// Outcome is the terminal result tag of a run.
type Outcome string

const (
	OutcomePosted           Outcome = "posted"
	OutcomeExhaustedRetries Outcome = "exhausted-retries"
	OutcomeGenerationFailed Outcome = "generation-failed"
	OutcomeSubmissionFailed Outcome = "submission-failed"
)

// Valid reports whether o is one of the terminal outcome tags.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePosted, OutcomeExhaustedRetries, OutcomeGenerationFailed, OutcomeSubmissionFailed:
		return true
	}
	return false
}

// Success reports whether the run posted a resource.
func (o Outcome) Success() bool {
	return o == OutcomePosted
}

// Violation is a single validation rule failure.
type Violation struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Validation is the validator's verdict on one candidate.
type Validation struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// Attempt is a snapshot of one candidate and what happened to it. Stage names
// the step that produced the candidate (intake, generate or fix). A failed
// step has an Error and no Candidate.
type Attempt struct {
	Number     int             `json:"number"`
	Stage      string          `json:"stage"`
	Candidate  json.RawMessage `json:"candidate,omitempty"`
	Validation *Validation     `json:"validation,omitempty"`
	Error      string          `json:"error,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// IdentityStatus describes the outcome of the optional patient lookup.
type IdentityStatus string

const (
	IdentitySkipped  IdentityStatus = "skipped"
	IdentityResolved IdentityStatus = "resolved"
	IdentityNotFound IdentityStatus = "not-found"
	IdentityError    IdentityStatus = "error"
)

// Identity records the patient lookup performed at intake.
type Identity struct {
	Email     string         `json:"email,omitempty"`
	Status    IdentityStatus `json:"status"`
	Reference string         `json:"reference,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Failure describes why a run did not post.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Record is the audit trail of one run. It is created open, accumulates
// attempts, and becomes immutable once sealed.
type Record struct {
	RunID      uuid.UUID  `json:"run_id"`
	InputRef   string     `json:"input_ref"`
	Identity   *Identity  `json:"identity,omitempty"`
	Attempts   []Attempt  `json:"attempts"`
	Outcome    Outcome    `json:"outcome,omitempty"`
	ResourceID *string    `json:"resource_id"`
	Failure    *Failure   `json:"failure,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	SealedAt   *time.Time `json:"sealed_at,omitempty"`
	Digest     string     `json:"digest,omitempty"`
}

// New opens a record for a run.
func New(runID uuid.UUID, inputRef string, startedAt time.Time) *Record {
	return &Record{
		RunID:     runID,
		InputRef:  inputRef,
		Attempts:  []Attempt{},
		StartedAt: Timestamp(startedAt),
	}
}

// Timestamp normalizes t to UTC microseconds so records survive a round trip
// through Postgres timestamptz with their digest intact.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Sealed reports whether the record has been sealed.
func (r *Record) Sealed() bool {
	return r.SealedAt != nil
}

// SetIdentity records the intake identity lookup.
func (r *Record) SetIdentity(id Identity) error {
	if r.Sealed() {
		return ErrSealed
	}
	r.Identity = &id
	return nil
}

// Append adds an attempt snapshot, numbering it and normalizing its timestamp.
func (r *Record) Append(a Attempt) error {
	if r.Sealed() {
		return ErrSealed
	}
	a.Number = len(r.Attempts) + 1
	a.RecordedAt = Timestamp(a.RecordedAt)
	a.Candidate = slices.Clone(a.Candidate)
	if a.Validation != nil {
		v := *a.Validation
		v.Violations = slices.Clone(v.Violations)
		a.Validation = &v
	}
	r.Attempts = append(r.Attempts, a)
	return nil
}

// Seal writes the terminal outcome and computes the record digest. A posted
// outcome requires a resource identifier; any other outcome forbids one.
func (r *Record) Seal(outcome Outcome, resourceID string, failure *Failure, at time.Time) error {
	if r.Sealed() {
		return ErrSealed
	}
	if !outcome.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}
	if outcome.Success() != (resourceID != "") {
		return fmt.Errorf("%w: %s with resource id %q", ErrInvalidOutcome, outcome, resourceID)
	}

	r.Outcome = outcome
	if resourceID != "" {
		r.ResourceID = &resourceID
	}
	if failure != nil {
		f := *failure
		r.Failure = &f
	}
	sealedAt := Timestamp(at)
	r.SealedAt = &sealedAt

	digest, err := r.computeDigest()
	if err != nil {
		return fmt.Errorf("seal: %w", err)
	}
	r.Digest = digest
	return nil
}

// Verify recomputes the digest of a sealed record.
func (r *Record) Verify() error {
	if !r.Sealed() {
		return ErrNotSealed
	}
	digest, err := r.computeDigest()
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if digest != r.Digest {
		return fmt.Errorf("%w: run %s", ErrDigestMismatch, r.RunID)
	}
	return nil
}

func (r *Record) computeDigest() (string, error) {
	view := *r
	view.Digest = ""
	return canonical.Digest(view)
}

// ValidationCount returns the number of attempts that reached the validator.
func (r *Record) ValidationCount() int {
	n := 0
	for _, a := range r.Attempts {
		if a.Validation != nil {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so readers cannot mutate a stored record.
func (r *Record) Clone() *Record {
	c := *r
	c.Attempts = make([]Attempt, len(r.Attempts))
	for i, a := range r.Attempts {
		a.Candidate = slices.Clone(a.Candidate)
		if a.Validation != nil {
			v := *a.Validation
			v.Violations = slices.Clone(v.Violations)
			a.Validation = &v
		}
		c.Attempts[i] = a
	}
	if r.Identity != nil {
		id := *r.Identity
		c.Identity = &id
	}
	if r.ResourceID != nil {
		id := *r.ResourceID
		c.ResourceID = &id
	}
	if r.Failure != nil {
		f := *r.Failure
		c.Failure = &f
	}
	if r.SealedAt != nil {
		at := *r.SealedAt
		c.SealedAt = &at
	}
	return &c
}

// Summary is the condensed view printed by the CLI and returned by list endpoints.
type Summary struct {
	RunID      uuid.UUID  `json:"run_id"`
	InputRef   string     `json:"input_ref"`
	Attempts   int        `json:"attempts"`
	Outcome    Outcome    `json:"outcome"`
	ResourceID *string    `json:"resource_id"`
	StartedAt  time.Time  `json:"started_at"`
	SealedAt   *time.Time `json:"sealed_at,omitempty"`
}

// Summary returns the condensed view of the record.
func (r *Record) Summary() Summary {
	return Summary{
		RunID:      r.RunID,
		InputRef:   r.InputRef,
		Attempts:   len(r.Attempts),
		Outcome:    r.Outcome,
		ResourceID: r.ResourceID,
		StartedAt:  r.StartedAt,
		SealedAt:   r.SealedAt,
	}
}
