package api

import (
	"github.com/JaimeStill/referrals/internal/audit"
)

// Domain holds the handlers that comprise the API. Archive is nil when blob
// storage is not configured.
type Domain struct {
	Audit   *audit.Handler
	Archive *archiveHandler
}

// NewDomain creates the domain handlers from the API runtime.
func NewDomain(runtime *Runtime, store audit.Store) *Domain {
	d := &Domain{
		Audit: audit.NewHandler(store, runtime.Logger, runtime.Pagination),
	}

	if runtime.Storage != nil {
		d.Archive = newArchiveHandler(runtime.Storage, runtime.Logger)
	}

	return d
}
