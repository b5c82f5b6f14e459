// Package cmd implements the rqc CLI (spec.md §6): a cargo-style
// sub-command dispatcher with "build" and "run".
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootCmd is the base command when rqc is called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "rqc",
	Short: "A property-based testing and fuzzing harness for Go test targets",
	Long: `rqc drives a user-written predicate with sequences of pseudo-random
bytes, interpreting those bytes as structured inputs and reporting
pass/fail/skip statistics. It can run in-process or supervise a separate
target binary over a shared-memory protocol.`,
}

// Execute adds all child commands to RootCmd and runs it. Called once
// from main.main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rqc: %v\n", err)
		os.Exit(1)
	}
}
