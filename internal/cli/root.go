// Package cli implements the threadline command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "threadline",
	Short: "Append-only conversation log with incremental timelines",
	Long: `threadline stores per-thread conversation events in an append-only
log and materializes them into render-ready timelines incrementally,
including delegate sub-conversations spawned by tool calls.

Run "threadline serve" to expose the HTTP API, or "threadline replay"
to print the timelines stored in an existing log.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("threadline %s (commit=%s)\n", version, commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
