package identity_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JaimeStill/referrals/internal/identity"
	"github.com/JaimeStill/referrals/internal/workflow"
)

func newClient(t *testing.T, status int, body string) *identity.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/patient" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("email"); got != "john.doe+ref@email.com" {
			t.Errorf("email = %q", got)
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return identity.New(srv.URL, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const email = "john.doe+ref@email.com"

func TestResolve(t *testing.T) {
	client := newClient(t, http.StatusOK, `{
		"success": true,
		"patient": {"id": "patient-001", "name": "John Doe", "date_of_birth": "1985-03-15", "gender": "male"}
	}`)

	ref, err := client.Resolve(context.Background(), email)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := workflow.PatientRef{ID: "patient-001", Reference: "Patient/patient-001", Display: "John Doe"}
	if *ref != want {
		t.Errorf("ref = %+v, want %+v", *ref, want)
	}
}

func TestResolveFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"404", http.StatusNotFound, `{"detail":"not found"}`, workflow.ErrPatientNotFound},
		{"no patient", http.StatusOK, `{"success": true, "patient": null}`, workflow.ErrPatientNotFound},
		{"unsuccessful without error", http.StatusOK, `{"success": false}`, workflow.ErrPatientNotFound},
		{"patient without id", http.StatusOK, `{"success": true, "patient": {"name": "x"}}`, workflow.ErrPatientNotFound},
		{"service error", http.StatusOK, `{"success": false, "error": "index offline"}`, identity.ErrLookup},
		{"server error", http.StatusServiceUnavailable, `down`, identity.ErrLookup},
		{"bad json", http.StatusOK, `<html>`, identity.ErrLookup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newClient(t, tt.status, tt.body).Resolve(context.Background(), email)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
