package referrals

import (
	"context"

	"github.com/JaimeStill/referrals/internal/audit"
	"github.com/JaimeStill/referrals/internal/workflow"
)

// Request names one referral document and, optionally, the patient email
// used for the identity lookup.
type Request struct {
	Document string `json:"document_path"`
	Email    string `json:"patient_email,omitempty"`
}

// BatchItem pairs a request with its run. Err is set only when the run could
// not execute; failure outcomes are reported through Result.
type BatchItem struct {
	Request Request
	Result  *workflow.Result
	Err     error
}

// System defines the public contract for referral processing.
type System interface {
	// Process runs one referral to a sealed audit record.
	Process(ctx context.Context, req Request) (*workflow.Result, error)
	// ProcessBatch runs independent referrals with bounded concurrency and
	// returns the items in request order.
	ProcessBatch(ctx context.Context, reqs []Request) []BatchItem
	// Audit exposes the store that sealed records are appended to.
	Audit() audit.Store
}
