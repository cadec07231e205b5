package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/JaimeStill/referrals/pkg/storage"
)

type archivingStore struct {
	Store
	blobs  storage.System
	logger *slog.Logger
}

// WithArchive returns a Store that, after each successful append, also
// uploads the sealed record to blob storage at ArchiveKey. Upload failures
// are logged and do not fail the append.
func WithArchive(inner Store, blobs storage.System, logger *slog.Logger) Store {
	return &archivingStore{
		Store:  inner,
		blobs:  blobs,
		logger: logger.With("system", "audit", "backend", "archive"),
	}
}

// ArchiveKey is the blob key of a sealed record.
func ArchiveKey(r *Record) string {
	return storage.Key("audit", r.RunID.String()+".json")
}

func (a *archivingStore) Append(ctx context.Context, r *Record) error {
	if err := a.Store.Append(ctx, r); err != nil {
		return err
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		a.logger.WarnContext(ctx, "archive encode failed", "run_id", r.RunID, "error", err)
		return nil
	}

	if err := storage.UploadBytes(ctx, a.blobs, ArchiveKey(r), data, "application/json"); err != nil {
		a.logger.WarnContext(ctx, "archive upload failed", "run_id", r.RunID, "error", err)
	}

	return nil
}
