package audit

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/JaimeStill/referrals/pkg/pagination"
)

// Store persists sealed records. Implementations serialize concurrent
// appends and reject unsealed records and duplicate run identifiers.
type Store interface {
	Append(ctx context.Context, r *Record) error
	Find(ctx context.Context, runID uuid.UUID) (*Record, error)
	List(ctx context.Context, page pagination.PageRequest) (pagination.PageResult[Summary], error)
}

// Backend names a Store implementation selected by configuration.
type Backend string

const (
	BackendFile     Backend = "file"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

func checkAppend(r *Record) error {
	if r == nil || !r.Sealed() {
		return ErrNotSealed
	}
	return nil
}

// pageSummaries orders summaries newest first and cuts the requested page.
func pageSummaries(all []Summary, page pagination.PageRequest) pagination.PageResult[Summary] {
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].StartedAt.After(all[j].StartedAt)
	})
	start, end := pagination.Window(len(all), page)
	return pagination.NewPageResult(all[start:end], len(all), page)
}
