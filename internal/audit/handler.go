package audit

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/referrals/pkg/handlers"
	"github.com/JaimeStill/referrals/pkg/pagination"
	"github.com/JaimeStill/referrals/pkg/routes"
)

// Handler provides read-only HTTP endpoints over an audit Store.
type Handler struct {
	store      Store
	logger     *slog.Logger
	pagination pagination.Config
}

// VerifyResponse reports the integrity check of a sealed record.
type VerifyResponse struct {
	RunID  uuid.UUID `json:"run_id"`
	Digest string    `json:"digest"`
	Valid  bool      `json:"valid"`
	Error  string    `json:"error,omitempty"`
}

func NewHandler(store Store, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		store:      store,
		logger:     logger.With("handler", "audit"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for audit endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/audit",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/verify", Handler: h.Verify},
		},
	}
}

// List returns a page of record summaries, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromQuery(r.URL.Query(), h.pagination)

	result, err := h.store.List(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns the full sealed record for a run.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec)
}

// Verify recomputes the digest of a sealed record.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}

	resp := VerifyResponse{RunID: rec.RunID, Digest: rec.Digest, Valid: true}
	if err := rec.Verify(); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}

	handlers.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*Record, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return nil, false
	}

	rec, err := h.store.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}

	return rec, true
}
