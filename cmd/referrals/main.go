// Command referrals turns referral documents into validated FHIR
// ServiceRequest resources and exposes the resulting audit trail.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	exitPosted = 0
	exitFailed = 1
	exitUsage  = 2
)

// exitError carries a process exit code alongside the error that caused it.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErr(err error) error {
	return &exitError{code: exitUsage, err: err}
}

// errRunFailed marks a run that completed with a recorded failure outcome.
var errRunFailed = errors.New("referral not posted")

// usageArgs reports positional argument errors with the usage exit code.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageErr(err)
		}
		return nil
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitPosted
	}

	var ee *exitError
	switch {
	case errors.As(err, &ee):
		fmt.Fprintln(stderr, "error:", ee.err)
		return ee.code
	case errors.Is(err, errRunFailed):
		return exitFailed
	default:
		fmt.Fprintln(stderr, "error:", err)
		return exitFailed
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "referrals",
		Short:         "Draft, validate, and submit FHIR ServiceRequests from referral documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "config.toml", "path to the base config file")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageErr(err)
	})

	root.AddCommand(processCmd())
	root.AddCommand(batchCmd())
	root.AddCommand(auditCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(mcpCmd())
	root.AddCommand(migrateCmd())

	return root
}
