package audit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/referrals/internal/audit"
	"github.com/JaimeStill/referrals/pkg/pagination"
	"github.com/JaimeStill/referrals/pkg/routes"
)

func newServer(t *testing.T) (*http.ServeMux, *audit.Record) {
	t.Helper()

	store := audit.NewMemoryStore()
	r := sealed(t, audit.OutcomePosted, "42")
	if err := store.Append(context.Background(), r); err != nil {
		t.Fatalf("Append: %v", err)
	}

	h := audit.NewHandler(store, discard(), pagination.Config{DefaultPageSize: 10, MaxPageSize: 50})
	mux := http.NewServeMux()
	routes.Register(mux, "/api", h.Routes())
	return mux, r
}

func TestHandlerFind(t *testing.T) {
	mux, r := newServer(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"found", "/api/audit/" + r.RunID.String(), http.StatusOK},
		{"unknown", "/api/audit/" + uuid.NewString(), http.StatusNotFound},
		{"malformed", "/api/audit/not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestHandlerList(t *testing.T) {
	mux, r := newServer(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit?page=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var page pagination.PageResult[audit.Summary]
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || page.Data[0].RunID != r.RunID || page.PageSize != 10 {
		t.Errorf("page = %+v", page)
	}
}

func TestHandlerVerify(t *testing.T) {
	mux, r := newServer(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/"+r.RunID.String()+"/verify", nil))

	var resp audit.VerifyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Valid || resp.Digest != r.Digest {
		t.Errorf("verify = %+v", resp)
	}
}
