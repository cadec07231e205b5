package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/referrals/internal/referrals"
)

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <dir-or-file>...",
		Short: "Process referral documents concurrently",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			docs, err := referrals.CollectDocuments(args)
			if err != nil {
				return usageErr(err)
			}

			a, err := startApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sys, err := a.system()
			if err != nil {
				return err
			}

			reqs := make([]referrals.Request, len(docs))
			for i, d := range docs {
				reqs[i] = referrals.Request{Document: d}
			}

			items := sys.ProcessBatch(cmd.Context(), reqs)

			summaries := make([]referrals.RunSummary, 0, len(items))
			failed := 0
			for _, item := range items {
				if item.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", item.Request.Document, item.Err)
					continue
				}
				if !item.Result.Posted() {
					failed++
				}
				summaries = append(summaries, referrals.Summarize(item.Request.Document, item.Result))
			}

			if err := writeSummaries(cmd.OutOrStdout(), asJSON, summaries); err != nil {
				return err
			}

			if failed > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d referrals not posted\n", failed, len(items))
				return errRunFailed
			}
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "print run summaries as JSON")

	return cmd
}
