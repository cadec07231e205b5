package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/referrals/internal/audit"
)

const (
	KeyInput    = "input"
	KeyContext  = "context"
	KeyRecord   = "record"
	KeyAuditErr = "audit_error"
)

// IntakeNode extracts the source text and, when an email is supplied,
// resolves the patient. Identity lookup failures are recorded but never end
// the run.
func IntakeNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		wc, rec, err := load(s)
		if err != nil {
			return s, fmt.Errorf("intake: %w", err)
		}
		in, err := get[Input](s, KeyInput)
		if err != nil {
			return s, fmt.Errorf("intake: %w", err)
		}

		text, err := extract(ctx, rt, in)
		if err != nil {
			rt.Logger.WarnContext(ctx, "intake failed", "run_id", wc.RunID, "document", in.Document, "error", err)
			if err := rec.Append(audit.Attempt{Stage: "intake", Error: err.Error(), RecordedAt: rt.now()}); err != nil {
				return s, fmt.Errorf("intake: %w", err)
			}
			return advance(s, rt, wc, IntakeFailed{Err: err})
		}

		patient, identity := resolve(ctx, rt, in.Email)
		if err := rec.SetIdentity(identity); err != nil {
			return s, fmt.Errorf("intake: %w", err)
		}

		rt.Logger.InfoContext(
			ctx, "intake complete",
			"run_id", wc.RunID,
			"text_length", len(text),
			"identity", identity.Status,
		)

		return advance(s, rt, wc, Started{SourceText: text, Patient: patient})
	})
}

func extract(ctx context.Context, rt *Runtime, in Input) (string, error) {
	if in.SourceText != "" {
		return in.SourceText, nil
	}
	if in.Document == "" || rt.Extractor == nil {
		return "", ErrNoSource
	}

	callCtx, cancel := rt.callContext(ctx)
	defer cancel()

	return rt.Extractor.Extract(callCtx, in.Document)
}

func resolve(ctx context.Context, rt *Runtime, email string) (*PatientRef, audit.Identity) {
	if email == "" || rt.Identity == nil {
		return nil, audit.Identity{Email: email, Status: audit.IdentitySkipped}
	}

	callCtx, cancel := rt.callContext(ctx)
	defer cancel()

	patient, err := rt.Identity.Resolve(callCtx, email)
	switch {
	case errors.Is(err, ErrPatientNotFound) || (err == nil && patient == nil):
		rt.Logger.WarnContext(ctx, "patient not found, continuing without reference", "email", email)
		return nil, audit.Identity{Email: email, Status: audit.IdentityNotFound}
	case err != nil:
		rt.Logger.WarnContext(ctx, "identity lookup failed, continuing without reference", "email", email, "error", err)
		return nil, audit.Identity{Email: email, Status: audit.IdentityError, Error: err.Error()}
	}

	return patient, audit.Identity{Email: email, Status: audit.IdentityResolved, Reference: patient.Reference}
}

// GenerateNode drafts the first candidate. Any generator failure ends the run.
func GenerateNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		wc, rec, err := load(s)
		if err != nil {
			return s, fmt.Errorf("generate: %w", err)
		}

		callCtx, cancel := rt.callContext(ctx)
		candidate, err := rt.Generator.Generate(callCtx, wc.SourceText, rt.hints(wc))
		cancel()

		if err == nil && len(candidate) == 0 {
			err = ErrEmptyCandidate
		}
		if err != nil {
			rt.Logger.WarnContext(ctx, "generation failed", "run_id", wc.RunID, "error", err)
			if err := rec.Append(audit.Attempt{Stage: "generate", Error: err.Error(), RecordedAt: rt.now()}); err != nil {
				return s, fmt.Errorf("generate: %w", err)
			}
			return advance(s, rt, wc, GenerationFailed{Err: err})
		}

		rt.Logger.InfoContext(ctx, "candidate generated", "run_id", wc.RunID)
		return advance(s, rt, wc, Generated{Candidate: candidate})
	})
}

// ValidateNode submits the current candidate to the validator and snapshots
// the candidate with its verdict. A validator that cannot be reached counts
// as a failed validation so the bounded fix loop still applies.
func ValidateNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		wc, rec, err := load(s)
		if err != nil {
			return s, fmt.Errorf("validate: %w", err)
		}

		callCtx, cancel := rt.callContext(ctx)
		result, err := rt.Validator.Validate(callCtx, wc.Candidate.Clone())
		cancel()

		if err != nil {
			result = Fail(Violation{Path: "$", Reason: "validator unavailable: " + err.Error()})
		}

		candidate, err := wc.Candidate.JSON()
		if err != nil {
			return s, fmt.Errorf("validate: encode candidate: %w", err)
		}

		stage := "generate"
		if wc.Attempts > 0 {
			stage = "fix"
		}

		err = rec.Append(audit.Attempt{
			Stage:      stage,
			Candidate:  candidate,
			Validation: result.audit(),
			RecordedAt: rt.now(),
		})
		if err != nil {
			return s, fmt.Errorf("validate: %w", err)
		}

		rt.Logger.InfoContext(
			ctx, "candidate validated",
			"run_id", wc.RunID,
			"attempt", wc.Attempts,
			"valid", result.Valid,
			"violations", len(result.Violations),
		)

		return advance(s, rt, wc, Validated{Result: result})
	})
}

// FixNode rewrites the candidate against the violations of the most recent
// validation. A failing rewrite ends the run.
func FixNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		wc, rec, err := load(s)
		if err != nil {
			return s, fmt.Errorf("fix: %w", err)
		}

		callCtx, cancel := rt.callContext(ctx)
		candidate, err := rt.Rewriter.Fix(callCtx, wc.Candidate.Clone(), wc.LastViolations())
		cancel()

		if err == nil && len(candidate) == 0 {
			err = ErrEmptyCandidate
		}
		if err != nil {
			rt.Logger.WarnContext(ctx, "fix failed", "run_id", wc.RunID, "attempt", wc.Attempts+1, "error", err)
			if err := rec.Append(audit.Attempt{Stage: "fix", Error: err.Error(), RecordedAt: rt.now()}); err != nil {
				return s, fmt.Errorf("fix: %w", err)
			}
			return advance(s, rt, wc, FixFailed{Err: err})
		}

		rt.Logger.InfoContext(ctx, "candidate rewritten", "run_id", wc.RunID, "attempt", wc.Attempts+1)
		return advance(s, rt, wc, Fixed{Candidate: candidate})
	})
}

// SubmitNode persists the passing candidate exactly once.
func SubmitNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		wc, _, err := load(s)
		if err != nil {
			return s, fmt.Errorf("submit: %w", err)
		}

		callCtx, cancel := rt.callContext(ctx)
		id, err := rt.Submitter.Submit(callCtx, wc.Candidate.Clone())
		cancel()

		if err == nil && id == "" {
			err = ErrEmptyResourceID
		}
		if err != nil {
			rt.Logger.WarnContext(ctx, "submission failed", "run_id", wc.RunID, "error", err)
			return advance(s, rt, wc, SubmissionFailed{Err: err})
		}

		rt.Logger.InfoContext(ctx, "candidate submitted", "run_id", wc.RunID, "resource_id", id)
		return advance(s, rt, wc, Submitted{ResourceID: id})
	})
}

// RecordNode seals the audit record and appends it to the store. A store
// failure is kept as a warning on the state and does not alter the outcome.
func RecordNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		wc, rec, err := load(s)
		if err != nil {
			return s, fmt.Errorf("record: %w", err)
		}
		if !wc.Stage.Terminal() {
			return s, fmt.Errorf("record: %w: stage %s", ErrInvalidTransition, wc.Stage)
		}

		if err := rec.Seal(wc.Outcome, wc.ResourceID, wc.Failure, rt.now()); err != nil {
			return s, fmt.Errorf("record: %w", err)
		}

		if err := rt.Audit.Append(ctx, rec); err != nil {
			rt.Logger.WarnContext(ctx, "audit record not persisted", "run_id", wc.RunID, "error", err)
			s = s.Set(KeyAuditErr, err)
		}

		rt.Logger.InfoContext(
			ctx, "run recorded",
			"run_id", wc.RunID,
			"outcome", wc.Outcome,
			"attempts", len(rec.Attempts),
			"fixes", wc.Attempts,
		)

		return s, nil
	})
}

func advance(s state.State, rt *Runtime, wc Context, ev Event) (state.State, error) {
	next, err := Advance(wc, ev, rt.Policy)
	if err != nil {
		return s, err
	}
	return s.Set(KeyContext, next), nil
}

func load(s state.State) (Context, *audit.Record, error) {
	wc, err := get[Context](s, KeyContext)
	if err != nil {
		return Context{}, nil, err
	}
	rec, err := get[*audit.Record](s, KeyRecord)
	if err != nil {
		return Context{}, nil, err
	}
	return wc, rec, nil
}

func get[T any](s state.State, key string) (T, error) {
	var zero T

	val, ok := s.Get(key)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMissingState, key)
	}

	v, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, not %T", ErrMissingState, key, val, zero)
	}

	return v, nil
}
