package audit_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/referrals/internal/audit"
)

var t0 = time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)

func sealed(t *testing.T, outcome audit.Outcome, resourceID string) *audit.Record {
	t.Helper()

	r := audit.New(uuid.New(), "referrals/doc.pdf", t0)
	err := r.Append(audit.Attempt{
		Stage:      "generate",
		Candidate:  json.RawMessage(`{"resourceType":"ServiceRequest","status":"active"}`),
		Validation: &audit.Validation{Valid: outcome == audit.OutcomePosted},
		RecordedAt: t0.Add(time.Second),
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := r.Seal(outcome, resourceID, nil, t0.Add(2*time.Second)); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return r
}

func TestAppendNumbersAttempts(t *testing.T) {
	r := audit.New(uuid.New(), "doc.txt", t0)

	for range 3 {
		if err := r.Append(audit.Attempt{Stage: "fix", RecordedAt: t0}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	for i, a := range r.Attempts {
		if a.Number != i+1 {
			t.Errorf("attempt %d numbered %d", i, a.Number)
		}
		if a.RecordedAt.Nanosecond()%1000 != 0 {
			t.Errorf("attempt %d timestamp not truncated: %v", i, a.RecordedAt)
		}
	}
}

func TestSealIsWriteOnce(t *testing.T) {
	r := sealed(t, audit.OutcomePosted, "42")

	if !r.Sealed() {
		t.Fatal("record not sealed")
	}
	if *r.ResourceID != "42" {
		t.Errorf("resource id = %q, want 42", *r.ResourceID)
	}
	if err := r.Append(audit.Attempt{Stage: "fix"}); !errors.Is(err, audit.ErrSealed) {
		t.Errorf("Append after seal = %v, want ErrSealed", err)
	}
	if err := r.Seal(audit.OutcomeSubmissionFailed, "", nil, t0); !errors.Is(err, audit.ErrSealed) {
		t.Errorf("second Seal = %v, want ErrSealed", err)
	}
	if err := r.SetIdentity(audit.Identity{Status: audit.IdentitySkipped}); !errors.Is(err, audit.ErrSealed) {
		t.Errorf("SetIdentity after seal = %v, want ErrSealed", err)
	}
}

func TestSealValidatesOutcome(t *testing.T) {
	tests := []struct {
		name       string
		outcome    audit.Outcome
		resourceID string
	}{
		{"unknown tag", audit.Outcome("pending"), ""},
		{"posted without id", audit.OutcomePosted, ""},
		{"failure with id", audit.OutcomeExhaustedRetries, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := audit.New(uuid.New(), "doc.txt", t0)
			err := r.Seal(tt.outcome, tt.resourceID, nil, t0)
			if !errors.Is(err, audit.ErrInvalidOutcome) {
				t.Fatalf("Seal = %v, want ErrInvalidOutcome", err)
			}
			if r.Sealed() {
				t.Error("record sealed despite invalid outcome")
			}
		})
	}
}

func TestVerify(t *testing.T) {
	r := sealed(t, audit.OutcomeExhaustedRetries, "")

	if err := r.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	tampered := r.Clone()
	tampered.Attempts[0].Error = "edited"
	if err := tampered.Verify(); !errors.Is(err, audit.ErrDigestMismatch) {
		t.Errorf("Verify(tampered) = %v, want ErrDigestMismatch", err)
	}

	open := audit.New(uuid.New(), "doc.txt", t0)
	if err := open.Verify(); !errors.Is(err, audit.ErrNotSealed) {
		t.Errorf("Verify(open) = %v, want ErrNotSealed", err)
	}
}

func TestVerifySurvivesJSONRoundTrip(t *testing.T) {
	r := sealed(t, audit.OutcomePosted, "42")

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded audit.Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if err := decoded.Verify(); err != nil {
		t.Fatalf("Verify after round trip: %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := sealed(t, audit.OutcomePosted, "42")
	c := r.Clone()

	c.Attempts[0].Candidate[0] = '['
	*c.ResourceID = "43"

	if r.Attempts[0].Candidate[0] != '{' || *r.ResourceID != "42" {
		t.Error("clone shares memory with original")
	}
}

func TestSummary(t *testing.T) {
	r := sealed(t, audit.OutcomePosted, "42")
	s := r.Summary()

	if s.Attempts != 1 || s.Outcome != audit.OutcomePosted || *s.ResourceID != "42" {
		t.Errorf("summary = %+v", s)
	}
	if r.ValidationCount() != 1 {
		t.Errorf("validation count = %d, want 1", r.ValidationCount())
	}
}
