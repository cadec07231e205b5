package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/referrals/internal/referrals"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <document>",
		Short: "Process a single referral document",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := startApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sys, err := a.system()
			if err != nil {
				return err
			}

			result, err := sys.Process(cmd.Context(), referrals.Request{Document: args[0], Email: email})
			if err != nil {
				return err
			}

			summary := referrals.Summarize(args[0], result)
			if err := writeSummary(cmd.OutOrStdout(), asJSON, summary); err != nil {
				return err
			}

			if !result.Posted() {
				return errRunFailed
			}
			return nil
		},
	}

	cmd.Flags().String("email", "", "patient email used for identity lookup")
	cmd.Flags().Bool("json", false, "print the run summary as JSON")

	return cmd
}

func writeSummary(w io.Writer, asJSON bool, s referrals.RunSummary) error {
	if asJSON {
		return writeJSON(w, s)
	}
	_, err := fmt.Fprintln(w, s.Render())
	return err
}

func writeSummaries(w io.Writer, asJSON bool, summaries []referrals.RunSummary) error {
	if asJSON {
		return writeJSON(w, summaries)
	}

	for _, s := range summaries {
		if _, err := fmt.Fprintln(w, s.Render()); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
