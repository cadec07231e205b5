// Package referrals composes configuration and infrastructure into
// referral workflow runs: one document at a time or in bounded batches.
package referrals

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/referrals/internal/audit"
	"github.com/JaimeStill/referrals/internal/config"
	"github.com/JaimeStill/referrals/internal/drafting"
	"github.com/JaimeStill/referrals/internal/extraction"
	"github.com/JaimeStill/referrals/internal/fhir"
	"github.com/JaimeStill/referrals/internal/identity"
	"github.com/JaimeStill/referrals/internal/infrastructure"
	"github.com/JaimeStill/referrals/internal/workflow"
	"github.com/JaimeStill/referrals/pkg/storage"
)

type repo struct {
	rt          *workflow.Runtime
	blobs       storage.System
	logger      *slog.Logger
	concurrency int
}

// New creates a System around a prepared runtime. blobs may be nil, in which
// case source documents are not archived.
func New(rt *workflow.Runtime, blobs storage.System, concurrency int, logger *slog.Logger) System {
	if concurrency < 1 {
		concurrency = 1
	}
	return &repo{
		rt:          rt,
		blobs:       blobs,
		logger:      logger.With("system", "referrals"),
		concurrency: concurrency,
	}
}

// NewFromConfig wires the production adapters from cfg and infra.
func NewFromConfig(cfg *config.Config, infra *infrastructure.Infrastructure) (System, error) {
	store, err := OpenStore(cfg.Audit, infra)
	if err != nil {
		return nil, err
	}

	client, err := drafting.NewAgentClient(&cfg.Agent)
	if err != nil {
		return nil, err
	}

	logger := infra.Logger
	timeout := cfg.Services.TimeoutDuration()
	drafter := drafting.New(client, logger)
	server := fhir.New(cfg.Services.FHIRURL, timeout, logger)

	rt := &workflow.Runtime{
		Extractor: extraction.New(cfg.Services.ExtractionURL, timeout, cfg.Services.MaxDocumentSizeBytes(), logger),
		Identity:  identity.New(cfg.Services.IdentityURL, timeout, logger),
		Generator: drafter,
		Rewriter:  drafter,
		Validator: server,
		Submitter: server,
		Audit:     store,
		Policy: workflow.Policy{
			MaxFixes:     cfg.Workflow.MaxFixAttempts,
			StageTimeout: cfg.Workflow.StageTimeoutDuration(),
		},
		Requester: cfg.Workflow.Requester,
		Logger:    logger.With("workflow", "referral"),
	}

	return New(rt, infra.Storage, cfg.Workflow.BatchConcurrency, logger), nil
}

func (r *repo) Audit() audit.Store {
	return r.rt.Audit
}

func (r *repo) Process(ctx context.Context, req Request) (*workflow.Result, error) {
	runID := uuid.New()

	in := workflow.Input{
		RunID:    runID,
		Document: req.Document,
		InputRef: r.archive(ctx, runID, req.Document),
		Email:    req.Email,
	}

	result, err := workflow.Execute(ctx, r.rt, in)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", req.Document, err)
	}

	r.logger.InfoContext(
		ctx, "referral processed",
		"run_id", runID,
		"document", req.Document,
		"outcome", result.Context.Outcome,
	)

	return result, nil
}

func (r *repo) ProcessBatch(ctx context.Context, reqs []Request) []BatchItem {
	items := make([]BatchItem, len(reqs))

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			result, err := r.Process(ctx, req)
			items[i] = BatchItem{Request: req, Result: result, Err: err}
			return nil
		})
	}
	g.Wait()

	return items
}

// archive copies the source document to blob storage and returns the key
// recorded on the audit record. Without storage, or when the upload fails,
// the local path is recorded instead.
func (r *repo) archive(ctx context.Context, runID uuid.UUID, path string) string {
	if r.blobs == nil || path == "" {
		return path
	}

	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.WarnContext(ctx, "source archive skipped", "run_id", runID, "error", err)
		return path
	}

	key := storage.Key("referrals", runID.String(), filepath.Base(path))
	if err := storage.UploadBytes(ctx, r.blobs, key, data, contentType(path)); err != nil {
		r.logger.WarnContext(ctx, "source archive failed", "run_id", runID, "key", key, "error", err)
		return path
	}

	return key
}

func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	default:
		return "text/plain"
	}
}
