package main

import (
	"github.com/spf13/cobra"

	"github.com/JaimeStill/referrals/internal/tools"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve referral processing as MCP tools over stdio",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := startApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sys, err := a.system()
			if err != nil {
				return err
			}

			return tools.New(sys, a.cfg.Version, a.infra.Logger).Serve()
		},
	}
}
