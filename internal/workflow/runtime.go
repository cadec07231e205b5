package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/referrals/internal/audit"
)

// DefaultMaxFixes bounds the fix loop: at most 1 + DefaultMaxFixes validator calls per run.
const DefaultMaxFixes = 3

// Extractor turns a source document into text.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// IdentityResolver looks up a patient by email. A missing patient is
// reported as ErrPatientNotFound.
type IdentityResolver interface {
	Resolve(ctx context.Context, email string) (*PatientRef, error)
}

// Generator drafts the first candidate from source text.
type Generator interface {
	Generate(ctx context.Context, text string, hints Hints) (Candidate, error)
}

// Rewriter produces a revised candidate from the last candidate and the
// violations of its validation only.
type Rewriter interface {
	Fix(ctx context.Context, candidate Candidate, violations []Violation) (Candidate, error)
}

// Validator checks a candidate without side effects and without mutating it.
// An error means the validator itself could not be reached.
type Validator interface {
	Validate(ctx context.Context, candidate Candidate) (ValidationResult, error)
}

// Submitter persists a passing candidate and returns its assigned identifier.
type Submitter interface {
	Submit(ctx context.Context, candidate Candidate) (string, error)
}

// Policy bounds the run.
type Policy struct {
	// MaxFixes is the fix attempt ceiling.
	MaxFixes int
	// StageTimeout wraps each external call; zero disables it.
	StageTimeout time.Duration
}

// CanFix reports whether another fix is allowed after attempts fixes.
func (p Policy) CanFix(attempts int) bool {
	return attempts < p.MaxFixes
}

// Runtime bundles the adapters and settings that workflow nodes require.
// It is constructed by higher-level composition code from configuration and
// infrastructure.
type Runtime struct {
	Extractor Extractor
	Identity  IdentityResolver
	Generator Generator
	Rewriter  Rewriter
	Validator Validator
	Submitter Submitter
	Audit     audit.Store
	Policy    Policy
	Requester string
	Logger    *slog.Logger
	Now       func() time.Time
}

func (rt *Runtime) validate() error {
	missing := func(name string) error {
		return fmt.Errorf("%w: %s required", ErrRuntime, name)
	}

	switch {
	case rt.Generator == nil:
		return missing("generator")
	case rt.Rewriter == nil:
		return missing("rewriter")
	case rt.Validator == nil:
		return missing("validator")
	case rt.Submitter == nil:
		return missing("submitter")
	case rt.Audit == nil:
		return missing("audit store")
	case rt.Logger == nil:
		return missing("logger")
	case rt.Policy.MaxFixes < 0 || rt.Policy.MaxFixes > DefaultMaxFixes:
		return fmt.Errorf("%w: max fixes %d outside 0..%d", ErrRuntime, rt.Policy.MaxFixes, DefaultMaxFixes)
	}
	return nil
}

func (rt *Runtime) now() time.Time {
	if rt.Now != nil {
		return rt.Now()
	}
	return time.Now()
}

func (rt *Runtime) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if rt.Policy.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, rt.Policy.StageTimeout)
}

func (rt *Runtime) hints(c Context) Hints {
	return Hints{Patient: c.Patient, Requester: rt.Requester}
}
