// Package cli wires the solving pipeline into a command-line front end.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type app struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
}

// NewRootCmd builds the gomzn command tree.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "gomzn",
		Short:         "Solve MiniZinc models through the external toolchain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug command traces")

	root.AddCommand(a.newSolveCmd())
	return root
}

// Run executes the CLI and returns the process exit code.
func Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := NewRootCmd(out, errOut)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, "gomzn:", err)
		return ExitCode(err)
	}
	return ExitSuccess
}
