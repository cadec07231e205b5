package workflow

import (
	"fmt"
	"slices"

	"github.com/JaimeStill/referrals/internal/audit"
)

// Event is the outcome of one stage, fed to Advance.
type Event interface {
	event()
}

type (
	// Started carries the intake result into Generating.
	Started struct {
		SourceText string
		Patient    *PatientRef
	}
	// IntakeFailed ends a run whose source could not be read.
	IntakeFailed struct{ Err error }
	// Generated carries the first draft into Validating.
	Generated struct{ Candidate Candidate }
	// GenerationFailed ends the run without spending fix attempts.
	GenerationFailed struct{ Err error }
	// Validated carries the validator's verdict.
	Validated struct{ Result ValidationResult }
	// Fixed carries the rewritten candidate back to Validating.
	Fixed struct{ Candidate Candidate }
	// FixFailed ends the run; a failing rewrite is not retried.
	FixFailed struct{ Err error }
	// Submitted carries the identifier assigned by the store.
	Submitted struct{ ResourceID string }
	// SubmissionFailed ends the run; submission is never retried.
	SubmissionFailed struct{ Err error }
)

func (Started) event()          {}
func (IntakeFailed) event()     {}
func (Generated) event()        {}
func (GenerationFailed) event() {}
func (Validated) event()        {}
func (Fixed) event()            {}
func (FixFailed) event()        {}
func (Submitted) event()        {}
func (SubmissionFailed) event() {}

// Advance applies ev to prev and returns the next context. prev is not
// modified. Events that do not belong to prev.Stage yield ErrInvalidTransition.
func Advance(prev Context, ev Event, policy Policy) (Context, error) {
	next := prev
	next.Violations = slices.Clone(prev.Violations)

	switch e := ev.(type) {
	case Started:
		if prev.Stage != StageStart {
			break
		}
		next.SourceText = e.SourceText
		next.Patient = e.Patient
		next.Stage = StageGenerating
		return next, nil

	case IntakeFailed:
		if prev.Stage != StageStart {
			break
		}
		return fail(next, audit.OutcomeGenerationFailed, FailureExtraction, e.Err), nil

	case Generated:
		if prev.Stage != StageGenerating {
			break
		}
		next.Candidate = e.Candidate
		next.Stage = StageValidating
		return next, nil

	case GenerationFailed:
		if prev.Stage != StageGenerating {
			break
		}
		return fail(next, audit.OutcomeGenerationFailed, FailureGeneration, e.Err), nil

	case Validated:
		if prev.Stage != StageValidating {
			break
		}
		next.Violations = append(next.Violations, slices.Clone(e.Result.Violations))

		switch {
		case e.Result.Valid:
			next.Stage = StageSubmitting
		case policy.CanFix(prev.Attempts):
			next.Stage = StageFixing
		default:
			err := fmt.Errorf(
				"validation failed after %d fix attempts with %d violations",
				prev.Attempts, len(e.Result.Violations),
			)
			return fail(next, audit.OutcomeExhaustedRetries, FailureRetryExhausted, err), nil
		}
		return next, nil

	case Fixed:
		if prev.Stage != StageFixing {
			break
		}
		next.Candidate = e.Candidate
		next.Attempts = prev.Attempts + 1
		next.Stage = StageValidating
		return next, nil

	case FixFailed:
		if prev.Stage != StageFixing {
			break
		}
		return fail(next, audit.OutcomeGenerationFailed, FailureFix, e.Err), nil

	case Submitted:
		if prev.Stage != StageSubmitting {
			break
		}
		next.ResourceID = e.ResourceID
		next.Outcome = audit.OutcomePosted
		next.Stage = StageRecordedSuccess
		return next, nil

	case SubmissionFailed:
		if prev.Stage != StageSubmitting {
			break
		}
		return fail(next, audit.OutcomeSubmissionFailed, FailureSubmission, e.Err), nil
	}

	return prev, fmt.Errorf("%w: %T in stage %s", ErrInvalidTransition, ev, prev.Stage)
}

func fail(c Context, outcome audit.Outcome, kind FailureKind, err error) Context {
	c.Stage = StageRecordedFailure
	c.Outcome = outcome
	c.Failure = &audit.Failure{Kind: string(kind), Message: errorText(err)}
	return c
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
