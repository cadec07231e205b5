// Package workflow implements the referral orchestrator: a state graph that
// sequences intake, generation, validation, a bounded fix loop, submission
// and audit recording for a single referral document.
package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/referrals/internal/audit"
)

// Execute runs one referral through the graph
// intake → generate → validate → (fix → validate)* → submit → record
// and returns the terminal context with the sealed audit record. Adapter
// failures become outcomes, not errors; an error is returned only when the
// run could not be executed at all.
func Execute(ctx context.Context, rt *Runtime, in Input) (*Result, error) {
	if err := rt.validate(); err != nil {
		return nil, err
	}

	runID := in.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}

	graph, err := buildGraph(rt)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	rec := audit.New(runID, in.ref(), rt.now())

	initialState := state.New(nil)
	initialState = initialState.Set(KeyInput, in)
	initialState = initialState.Set(KeyContext, Context{RunID: runID, Stage: StageStart})
	initialState = initialState.Set(KeyRecord, rec)

	rt.Logger.InfoContext(ctx, "run started", "run_id", runID, "input_ref", rec.InputRef)

	finalState, err := graph.Execute(ctx, initialState)
	if err != nil {
		return nil, fmt.Errorf("execute graph: %w", err)
	}

	return extractResult(finalState)
}

func buildGraph(rt *Runtime) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("referral-workflow")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	nodes := []struct {
		name string
		node state.StateNode
	}{
		{"intake", IntakeNode(rt)},
		{"generate", GenerateNode(rt)},
		{"validate", ValidateNode(rt)},
		{"fix", FixNode(rt)},
		{"submit", SubmitNode(rt)},
		{"record", RecordNode(rt)},
	}
	for _, n := range nodes {
		if err := graph.AddNode(n.name, n.node); err != nil {
			return nil, err
		}
	}

	edges := []struct {
		from, to string
		when     func(state.State) bool
	}{
		{"intake", "generate", atStage(StageGenerating)},
		{"intake", "record", terminal},
		{"generate", "validate", atStage(StageValidating)},
		{"generate", "record", terminal},
		{"validate", "submit", atStage(StageSubmitting)},
		{"validate", "fix", atStage(StageFixing)},
		{"validate", "record", terminal},
		{"fix", "validate", atStage(StageValidating)},
		{"fix", "record", terminal},
		{"submit", "record", nil},
	}
	for _, e := range edges {
		if err := graph.AddEdge(e.from, e.to, e.when); err != nil {
			return nil, err
		}
	}

	if err := graph.SetEntryPoint("intake"); err != nil {
		return nil, err
	}

	if err := graph.SetExitPoint("record"); err != nil {
		return nil, err
	}

	return graph, nil
}

func atStage(stage Stage) func(state.State) bool {
	return func(s state.State) bool {
		wc, err := get[Context](s, KeyContext)
		return err == nil && wc.Stage == stage
	}
}

func terminal(s state.State) bool {
	wc, err := get[Context](s, KeyContext)
	return err == nil && wc.Stage.Terminal()
}

func extractResult(s state.State) (*Result, error) {
	wc, rec, err := load(s)
	if err != nil {
		return nil, err
	}
	if !rec.Sealed() {
		return nil, fmt.Errorf("%w: run %s ended unsealed in stage %s", ErrInvalidTransition, wc.RunID, wc.Stage)
	}

	result := &Result{Context: wc, Record: rec}

	if val, ok := s.Get(KeyAuditErr); ok {
		if auditErr, ok := val.(error); ok {
			result.AuditErr = auditErr
		}
	}

	return result, nil
}
