package referrals

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/JaimeStill/referrals/internal/audit"
	"github.com/JaimeStill/referrals/internal/workflow"
)

// RunSummary is the condensed, serializable result of one run.
type RunSummary struct {
	RunID        uuid.UUID      `json:"run_id"`
	Document     string         `json:"document,omitempty"`
	Outcome      audit.Outcome  `json:"outcome"`
	Attempts     int            `json:"attempts"`
	Fixes        int            `json:"fixes"`
	ResourceID   *string        `json:"resource_id"`
	Failure      *audit.Failure `json:"failure,omitempty"`
	Digest       string         `json:"digest"`
	AuditWarning string         `json:"audit_warning,omitempty"`
}

// Summarize condenses a run result.
func Summarize(document string, r *workflow.Result) RunSummary {
	s := RunSummary{
		RunID:      r.Record.RunID,
		Document:   document,
		Outcome:    r.Record.Outcome,
		Attempts:   len(r.Record.Attempts),
		Fixes:      r.Context.Attempts,
		ResourceID: r.Record.ResourceID,
		Failure:    r.Record.Failure,
		Digest:     r.Record.Digest,
	}
	if r.AuditErr != nil {
		s.AuditWarning = "audit record not persisted: " + r.AuditErr.Error()
	}
	return s
}

var (
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Width(12)
	postedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950"))
	failedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E3B341"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Render formats the summary for terminal output.
func (s RunSummary) Render() string {
	outcome := failedStyle.Render(string(s.Outcome))
	if s.Outcome.Success() {
		outcome = postedStyle.Render(string(s.Outcome))
	}

	id := "null"
	if s.ResourceID != nil {
		id = *s.ResourceID
	}

	rows := [][2]string{
		{"run", s.RunID.String()},
		{"document", s.Document},
		{"outcome", outcome},
		{"attempts", fmt.Sprintf("%d (%d fixes)", s.Attempts, s.Fixes)},
		{"resource", id},
	}
	if s.Failure != nil {
		rows = append(rows, [2]string{"failure", s.Failure.Kind + ": " + s.Failure.Message})
	}

	lines := make([]string, 0, len(rows)+1)
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(r[0]), r[1]))
	}
	if s.AuditWarning != "" {
		lines = append(lines, warningStyle.Render("warning: "+s.AuditWarning))
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}
