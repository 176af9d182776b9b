// Package cmd contains the CLI for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo-health [flags] owner/repo",
		Short: "An SRE tool that scores the health of a GitHub repository.",
		Long: `repo-health fetches a repository's metadata from the GitHub API, derives a
health score, an activity level and recommendations from it, prints a report
and saves a snapshot of the result.

The snapshot format follows the output extension: .json (default), .yaml/.yml,
.xlsx or .prom (Prometheus textfile collector).`,
		Example: `  repo-health nodejs/node
  repo-health kubernetes/kubernetes -o k8s.yaml -t 30 -r 5
  repo-health golang/go --no-file --verbose`,
		Args:          exactlyOneRepo,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runAnalyze,
	}

	// Add a persistent flag for verbose output.
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	addAnalyzeFlags(cmd)

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if code := run(rootCmd); code != 0 {
		os.Exit(code)
	}
}

// run executes cmd and turns any error into an operator message and exit code.
func run(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), operatorMessage(err))
		return 1
	}
	return 0
}

func exactlyOneRepo(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return &usageError{err: fmt.Errorf("expected exactly one repository in format 'owner/repo', got %d arguments", len(args))}
	}
	return nil
}
