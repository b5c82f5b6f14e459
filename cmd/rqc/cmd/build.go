package cmd

import (
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
)

// exitFromToolchain mirrors the exec.ExitError's exit code directly
// (spec.md §6: "Exit code = toolchain exit code"), bypassing cobra's
// generic non-zero-on-any-error behavior.
func exitFromToolchain(err error) error {
	if exitErr, ok := err.(*exec.ExitError); ok {
		os.Exit(exitErr.ExitCode())
	}
	return err
}

// rqcBuildFlagsEnv is this project's analogue of a RUSTFLAGS-style
// passthrough variable (spec.md §6's "Environment" clause): its value is
// split on whitespace and appended, unchanged, to the go build
// invocation.
const rqcBuildFlagsEnv = "RQC_BUILD_FLAGS"

var buildOutput string

var buildCmd = &cobra.Command{
	Use:   "build [package]",
	Short: "Build a test-target executable with debug checks and native optimizations enabled",
	Long: `build forwards to the local Go compiler with the closest available
equivalents of a release-plus-assertions configuration: -race to catch
data races and enforce the same kind of "don't silently keep going"
discipline as overflow/debug assertions, and GOAMD64=v3 (when the host
is amd64) as the target-cpu=native analogue. Any flags set in the
RQC_BUILD_FLAGS environment variable are appended unchanged.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	RootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output path for the built binary")
}

func runBuild(cobraCmd *cobra.Command, args []string) error {
	pkg := "."
	if len(args) == 1 {
		pkg = args[0]
	}

	goArgs := []string{"build", "-race"}
	if buildOutput != "" {
		goArgs = append(goArgs, "-o", buildOutput)
	}
	if extra := strings.Fields(os.Getenv(rqcBuildFlagsEnv)); len(extra) > 0 {
		goArgs = append(goArgs, extra...)
	}
	goArgs = append(goArgs, pkg)

	goCmd := exec.Command("go", goArgs...)
	goCmd.Stdout = cobraCmd.OutOrStdout()
	goCmd.Stderr = cobraCmd.ErrOrStderr()
	goCmd.Env = append(os.Environ(), "GOAMD64=v3")

	return exitFromToolchain(goCmd.Run())
}
