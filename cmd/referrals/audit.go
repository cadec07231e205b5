package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/referrals/internal/audit"
	"github.com/JaimeStill/referrals/pkg/pagination"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read sealed audit records",
	}

	cmd.AddCommand(auditShowCmd())
	cmd.AddCommand(auditListCmd())
	cmd.AddCommand(auditVerifyCmd())

	return cmd
}

func auditShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the full audit record of a run",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := findRecord(cmd, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func auditVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <run-id>",
		Short: "Recompute and check the digest of a sealed record",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := findRecord(cmd, args[0])
			if err != nil {
				return err
			}

			if err := rec.Verify(); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  digest %s  INVALID: %v\n", rec.RunID, rec.Digest, err)
				return errRunFailed
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s  digest %s  ok\n", rec.RunID, rec.Digest)
			return nil
		},
	}
}

func auditListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit records, newest first",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, _ := cmd.Flags().GetInt("page")
			size, _ := cmd.Flags().GetInt("page-size")
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := startApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			store, err := a.store()
			if err != nil {
				return err
			}

			req := pagination.PageRequest{Page: page, PageSize: size}
			req.Normalize(a.cfg.Pagination)

			result, err := store.List(cmd.Context(), req)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return renderList(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("page-size", 0, "records per page (config default when zero)")
	cmd.Flags().Bool("json", false, "print the page as JSON")

	return cmd
}

func findRecord(cmd *cobra.Command, arg string) (*audit.Record, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return nil, usageErr(fmt.Errorf("invalid run id %q: %w", arg, err))
	}

	a, err := startApp(cmd)
	if err != nil {
		return nil, err
	}
	defer a.close()

	store, err := a.store()
	if err != nil {
		return nil, err
	}

	return store.Find(cmd.Context(), id)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	idColumn    = lipgloss.NewStyle().Width(38)
	outColumn   = lipgloss.NewStyle().Width(20)
	numColumn   = lipgloss.NewStyle().Width(10)
	refColumn   = lipgloss.NewStyle().Width(14)
)

func renderList(w io.Writer, page pagination.PageResult[audit.Summary]) error {
	row := func(id, outcome, attempts, resource, started string) string {
		return lipgloss.JoinHorizontal(
			lipgloss.Top,
			idColumn.Render(id),
			outColumn.Render(outcome),
			numColumn.Render(attempts),
			refColumn.Render(resource),
			started,
		)
	}

	lines := []string{headerStyle.Render(row("RUN", "OUTCOME", "ATTEMPTS", "RESOURCE", "STARTED"))}
	for _, s := range page.Data {
		resource := "null"
		if s.ResourceID != nil {
			resource = *s.ResourceID
		}
		lines = append(lines, row(
			s.RunID.String(),
			string(s.Outcome),
			fmt.Sprint(s.Attempts),
			resource,
			s.StartedAt.Format("2006-01-02 15:04:05"),
		))
	}
	lines = append(lines, fmt.Sprintf("page %d of %d (%d records)", page.Page, page.TotalPages, page.Total))

	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
