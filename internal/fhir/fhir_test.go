package fhir_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/JaimeStill/referrals/internal/fhir"
	"github.com/JaimeStill/referrals/internal/workflow"
)

func validCandidate() workflow.Candidate {
	return workflow.Candidate{
		"resourceType": "ServiceRequest",
		"status":       "active",
		"intent":       "order",
		"subject":      map[string]any{"reference": "Patient/123"},
	}
}

func newClient(t *testing.T, h http.HandlerFunc) (*fhir.Client, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if ct := r.Header.Get("Content-Type"); ct != fhir.ContentType {
			t.Errorf("content type = %q", ct)
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fhir.New(srv.URL+"/fhir/", 2*time.Second, logger), &calls
}

func writeOutcome(w http.ResponseWriter, status int, issues ...fhir.Issue) {
	w.Header().Set("Content-Type", fhir.ContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(fhir.OperationOutcome{ResourceType: "OperationOutcome", Issue: issues})
}

func TestPrecheck(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(workflow.Candidate)
		paths  []string
	}{
		{"valid", func(workflow.Candidate) {}, nil},
		{"wrong type", func(c workflow.Candidate) { c["resourceType"] = "Patient" }, []string{"resourceType"}},
		{"bad status", func(c workflow.Candidate) { c["status"] = "pending" }, []string{"ServiceRequest.status"}},
		{"missing intent", func(c workflow.Candidate) { delete(c, "intent") }, []string{"ServiceRequest.intent"}},
		{"missing subject", func(c workflow.Candidate) { delete(c, "subject") }, []string{"ServiceRequest.subject.reference"}},
		{"malformed subject", func(c workflow.Candidate) {
			c["subject"] = map[string]any{"reference": "patient 123"}
		}, []string{"ServiceRequest.subject.reference"}},
		{"several", func(c workflow.Candidate) {
			c["status"] = 7
			c["intent"] = "suggestion"
		}, []string{"ServiceRequest.status", "ServiceRequest.intent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidate()
			tt.mutate(c)

			got := fhir.Precheck(c)
			if len(got) != len(tt.paths) {
				t.Fatalf("violations = %+v, want paths %v", got, tt.paths)
			}
			for i, v := range got {
				if v.Path != tt.paths[i] {
					t.Errorf("violation %d path = %q, want %q", i, v.Path, tt.paths[i])
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		valid   bool
		paths   []string
		reason  string
	}{
		{
			name: "informational outcome passes",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeOutcome(w, http.StatusOK, fhir.Issue{Severity: "information", Code: "informational", Diagnostics: "All OK"})
			},
			valid: true,
		},
		{
			name: "error issues fail",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeOutcome(w, http.StatusOK,
					fhir.Issue{Severity: "warning", Code: "business-rule", Diagnostics: "ignored"},
					fhir.Issue{Severity: "error", Code: "required", Diagnostics: "code is required", Expression: []string{"ServiceRequest.code"}},
					fhir.Issue{Severity: "fatal", Code: "structure", Details: &fhir.CodeableConcept{Text: "bad element"}, Location: []string{"/f:ServiceRequest/f:foo"}},
				)
			},
			paths:  []string{"ServiceRequest.code", "/f:ServiceRequest/f:foo"},
			reason: "code is required",
		},
		{
			name: "unprocessable outcome fails",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeOutcome(w, http.StatusUnprocessableEntity, fhir.Issue{Severity: "error", Code: "invalid", Diagnostics: "unknown code"})
			},
			paths:  []string{"$"},
			reason: "unknown code",
		},
		{
			name: "non-2xx without outcome fails",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gateway down", http.StatusBadGateway)
			},
			paths:  []string{"$"},
			reason: "HTTP 502: gateway down",
		},
		{
			name: "non-outcome 200 passes",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"resourceType":"Parameters"}`))
			},
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/fhir/ServiceRequest/$validate" {
					t.Errorf("path = %q", r.URL.Path)
				}
				tt.handler(w, r)
			})

			result, err := client.Validate(context.Background(), validCandidate())
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if result.Valid != tt.valid {
				t.Fatalf("valid = %v, want %v (%s)", result.Valid, tt.valid, result)
			}
			if len(result.Violations) != len(tt.paths) {
				t.Fatalf("violations = %+v", result.Violations)
			}
			for i, v := range result.Violations {
				if v.Path != tt.paths[i] {
					t.Errorf("path %d = %q, want %q", i, v.Path, tt.paths[i])
				}
			}
			if tt.reason != "" && result.Violations[0].Reason != tt.reason {
				t.Errorf("reason = %q, want %q", result.Violations[0].Reason, tt.reason)
			}
		})
	}
}

func TestValidatePrecheckSkipsServer(t *testing.T) {
	client, calls := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeOutcome(w, http.StatusOK)
	})

	c := validCandidate()
	c["intent"] = "wish"

	result, err := client.Validate(context.Background(), c)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid || *calls != 0 {
		t.Errorf("valid=%v calls=%d, want local failure", result.Valid, *calls)
	}
}

func TestValidateUnreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := fhir.New("http://127.0.0.1:1/fhir", time.Second, logger)

	if _, err := client.Validate(context.Background(), validCandidate()); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "id in body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"resourceType":"ServiceRequest","id":"42"}`))
			},
			want: "42",
		},
		{
			name: "id in location",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Location", "http://fhir.example/fhir/ServiceRequest/sr-9/_history/1")
				w.WriteHeader(http.StatusCreated)
			},
			want: "sr-9",
		},
		{
			name: "ok status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"id":"7"}`))
			},
			want: "7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/fhir/ServiceRequest" || r.Method != http.MethodPost {
					t.Errorf("%s %s", r.Method, r.URL.Path)
				}
				tt.handler(w, r)
			})

			id, err := client.Submit(context.Background(), validCandidate())
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if id != tt.want {
				t.Errorf("id = %q, want %q", id, tt.want)
			}
		})
	}
}

func TestSubmitErrors(t *testing.T) {
	t.Run("rejected with outcome", func(t *testing.T) {
		client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeOutcome(w, http.StatusBadRequest, fhir.Issue{Severity: "error", Code: "invalid", Diagnostics: "subject not found"})
		})

		_, err := client.Submit(context.Background(), validCandidate())

		var se *fhir.SubmissionError
		if !errors.As(err, &se) {
			t.Fatalf("err = %v, want SubmissionError", err)
		}
		if se.Status != http.StatusBadRequest || se.Diagnostics != "subject not found" {
			t.Errorf("submission error = %+v", se)
		}
		if !errors.Is(err, fhir.ErrNotAccepted) {
			t.Error("SubmissionError does not unwrap to ErrNotAccepted")
		}
	})

	t.Run("missing id", func(t *testing.T) {
		client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})

		if _, err := client.Submit(context.Background(), validCandidate()); !errors.Is(err, fhir.ErrMissingID) {
			t.Errorf("err = %v, want ErrMissingID", err)
		}
	})

	t.Run("server error body", func(t *testing.T) {
		client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, strings.Repeat("x", 500), http.StatusInternalServerError)
		})

		_, err := client.Submit(context.Background(), validCandidate())
		var se *fhir.SubmissionError
		if !errors.As(err, &se) || !strings.HasSuffix(se.Diagnostics, "...") {
			t.Errorf("err = %v", err)
		}
	})
}

func TestValidateTruncatesMultibyteBody(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "x"+strings.Repeat("服务不可用", 100), http.StatusServiceUnavailable)
	})

	result, err := client.Validate(context.Background(), validCandidate())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid || len(result.Violations) != 1 {
		t.Fatalf("result = %+v", result)
	}
	reason := result.Violations[0].Reason
	if !utf8.ValidString(reason) || !strings.HasSuffix(reason, "...") {
		t.Errorf("reason = %q", reason)
	}
}
