package api

import (
	"net/http"

	"github.com/JaimeStill/referrals/pkg/handlers"
	"github.com/JaimeStill/referrals/pkg/routes"
)

type status struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime, base string) {
	groups := []routes.Group{domain.Audit.Routes()}
	if domain.Archive != nil {
		groups = append(groups, domain.Archive.routes())
	}

	patterns := routes.Register(mux, base, groups...)
	runtime.Logger.Debug("api routes registered", "count", len(patterns))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, status{Status: "ok"})
	})
	mux.HandleFunc("GET /readyz", readiness(runtime))
}

// readiness reports 503 until every subsystem has started, and while the
// audit database (when configured) cannot be reached.
func readiness(runtime *Runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !runtime.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, status{Status: "not ready"})
			return
		}

		if runtime.Database != nil {
			if err := runtime.Database.Ping(r.Context()); err != nil {
				runtime.Logger.Warn("readiness check failed", "error", err)
				handlers.RespondJSON(w, http.StatusServiceUnavailable, status{Status: "not ready", Error: err.Error()})
				return
			}
		}

		handlers.RespondJSON(w, http.StatusOK, status{Status: "ready"})
	}
}
