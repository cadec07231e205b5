// Package api assembles the read-only HTTP surface over audit records and
// the blob archive, plus the health and readiness checks.
package api

import (
	"net/http"

	"github.com/JaimeStill/referrals/internal/audit"
	"github.com/JaimeStill/referrals/internal/config"
	"github.com/JaimeStill/referrals/internal/infrastructure"
	"github.com/JaimeStill/referrals/pkg/middleware"
)

// NewHandler creates the API handler with every domain route mounted under
// the configured base path.
func NewHandler(cfg *config.Config, infra *infrastructure.Infrastructure, store audit.Store) http.Handler {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime, store)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime, cfg.Server.BasePath)

	mw := middleware.New()
	mw.Use(middleware.Recover(runtime.Logger))
	mw.Use(middleware.Logger(runtime.Logger))

	return mw.Apply(mux)
}
