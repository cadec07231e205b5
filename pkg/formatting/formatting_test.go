package formatting_test

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/JaimeStill/referrals/pkg/formatting"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"raw object", `{"resourceType": "ServiceRequest"}`, "ServiceRequest"},
		{"json fence", "Here you go:\n```json\n{\"resourceType\": \"ServiceRequest\"}\n```", "ServiceRequest"},
		{"bare fence", "```\n{\"resourceType\": \"Patient\"}\n```", "Patient"},
		{"prose around object", `The corrected resource is {"resourceType": "ServiceRequest"} as requested.`, "ServiceRequest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[map[string]any](tt.content)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got["resourceType"] != tt.want {
				t.Errorf("resourceType = %v, want %s", got["resourceType"], tt.want)
			}
		})
	}
}

func TestParseFailure(t *testing.T) {
	_, err := formatting.Parse[map[string]any]("I could not produce a resource.")
	if !errors.Is(err, formatting.ErrParseFailed) {
		t.Fatalf("Parse error = %v, want ErrParseFailed", err)
	}
}

func TestParseFailureKeepsRunes(t *testing.T) {
	content := "Référence: " + strings.Repeat("é", 200)

	_, err := formatting.Parse[map[string]any](content)
	if !errors.Is(err, formatting.ErrParseFailed) {
		t.Fatalf("Parse error = %v, want ErrParseFailed", err)
	}
	if !utf8.ValidString(err.Error()) {
		t.Errorf("error is not valid UTF-8: %q", err.Error())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		s    string
		n    int
		want string
	}{
		{"short", "abc", 5, "abc"},
		{"ascii cut", "abcdef", 3, "abc..."},
		{"mid rune", "aé", 2, "a..."},
		{"rune edge", "éé", 2, "é..."},
		{"three byte rune", "x€y", 3, "x..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatting.Truncate(tt.s, tt.n); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
			}
		})
	}
}

func TestParseRejectsArrayForObject(t *testing.T) {
	_, err := formatting.Parse[map[string]any](`[1, 2, 3]`)
	if !errors.Is(err, formatting.ErrParseFailed) {
		t.Fatalf("Parse error = %v, want ErrParseFailed", err)
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{"50MB", 50 * 1024 * 1024, false},
		{"512 kb", 512 * 1024, false},
		{"1.5GB", 1536 * 1024 * 1024, false},
		{"", 0, true},
		{"ten MB", 0, true},
		{"5XB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytes(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KB"},
		{50 * 1024 * 1024, "50.0 MB"},
	}

	for _, tt := range tests {
		if got := formatting.FormatBytes(tt.n, 1); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
