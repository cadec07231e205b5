package referrals

import (
	"fmt"

	"github.com/JaimeStill/referrals/internal/audit"
	"github.com/JaimeStill/referrals/internal/config"
	"github.com/JaimeStill/referrals/internal/infrastructure"
)

// OpenStore selects the audit backend named in cfg. When blob storage is
// configured, sealed records are also archived there.
func OpenStore(cfg config.AuditConfig, infra *infrastructure.Infrastructure) (audit.Store, error) {
	store, err := openBackend(cfg, infra)
	if err != nil {
		return nil, err
	}

	if infra.Storage != nil {
		store = audit.WithArchive(store, infra.Storage, infra.Logger)
	}
	return store, nil
}

func openBackend(cfg config.AuditConfig, infra *infrastructure.Infrastructure) (audit.Store, error) {
	switch audit.Backend(cfg.Backend) {
	case audit.BackendMemory:
		return audit.NewMemoryStore(), nil
	case audit.BackendPostgres:
		if infra.Database == nil {
			return nil, ErrDatabaseUnset
		}
		return audit.NewPostgresStore(infra.Database.Connection(), infra.Logger), nil
	case audit.BackendFile:
		store, err := audit.NewFileStore(cfg.Path, infra.Logger)
		if err != nil {
			return nil, fmt.Errorf("open audit file %s: %w", cfg.Path, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
	}
}
