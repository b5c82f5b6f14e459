package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/blt/rqc/supervisor"
)

var (
	runTarget           string
	runMaximumTestBytes int
	runShmPath          string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch the supervisor against a target executable",
	Long: `run allocates a shared-memory segment, forks --target, and drives it
through the word-offset protocol: drawing random byte blobs, collecting
pass/skip/fail/insufficient-bytes outcomes, and surviving target
crashes by re-forking.`,
	RunE: runRun,
}

func init() {
	RootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runTarget, "target", "", "path to the test-target executable (required)")
	runCmd.Flags().IntVar(&runMaximumTestBytes, "maximum-test-bytes", supervisor.DefaultMaximumTestBytes, "payload capacity in bytes")
	runCmd.Flags().StringVar(&runShmPath, "shm-path", supervisor.DefaultShmPath, "POSIX shared-memory object name")
	_ = runCmd.MarkFlagRequired("target")
}

func runRun(cobraCmd *cobra.Command, args []string) error {
	if _, err := os.Stat(runTarget); err != nil {
		return fmt.Errorf("target %q is not accessible: %w", runTarget, err)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: cobraCmd.OutOrStdout()}).With().Timestamp().Logger()

	cfg := supervisor.DefaultConfig(runTarget)
	cfg.MaximumTestBytes = runMaximumTestBytes
	cfg.ShmPath = runShmPath

	sup := supervisor.New(cfg, log)
	return sup.Run()
}
