package routes_test

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/JaimeStill/referrals/pkg/routes"
)

func TestRegister(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.PathValue("id")))
	}

	mux := http.NewServeMux()
	patterns := routes.Register(mux, "/api", routes.Group{
		Prefix: "/audit",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: ok},
			{Method: "GET", Pattern: "/{id}", Handler: ok},
		},
		Children: []routes.Group{{
			Prefix: "/runs",
			Routes: []routes.Route{{Method: "GET", Pattern: "/{id}/verify", Handler: ok}},
		}},
	})

	want := []string{"GET /api/audit", "GET /api/audit/{id}", "GET /api/audit/runs/{id}/verify"}
	if !slices.Equal(patterns, want) {
		t.Errorf("patterns = %v, want %v", patterns, want)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/abc", nil))
	if rec.Body.String() != "abc" {
		t.Errorf("body = %q, want abc", rec.Body.String())
	}
}
