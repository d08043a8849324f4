package mzn

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"gomzn/internal/runner"
)

// SolveOptions carries solver-backend options. Backends interpret what they
// support and ignore the rest.
type SolveOptions struct {
	// AllSolutions asks the solver to enumerate every solution.
	AllSolutions bool

	// NumSolutions limits the number of solutions; 0 keeps the backend
	// default. Ignored when AllSolutions is set.
	NumSolutions int

	// Parallel is the number of solver threads; 0 keeps the backend default.
	Parallel int

	// Seed is the random seed; 0 keeps the backend default.
	Seed int

	// TimeLimit bounds the solving time; 0 means no limit.
	TimeLimit time.Duration

	// ExtraArgs are appended to the backend command line verbatim.
	ExtraArgs []string
}

// Solver runs the solving stage on a flattened-constraints file and returns
// the raw solution stream.
type Solver interface {
	Solve(ctx context.Context, fznPath string, opts SolveOptions) (string, error)
}

// SolverFunc adapts a plain function to the Solver interface.
type SolverFunc func(ctx context.Context, fznPath string, opts SolveOptions) (string, error)

func (f SolverFunc) Solve(ctx context.Context, fznPath string, opts SolveOptions) (string, error) {
	return f(ctx, fznPath, opts)
}

// Gecode runs the fzn-gecode backend through a CommandRunner.
type Gecode struct {
	// Cmd is the solver program name; DefaultGecodeCmd when empty.
	Cmd string

	// Runner executes the solver process.
	Runner runner.CommandRunner

	// Log traces solver invocations at debug level.
	Log zerolog.Logger
}

var _ Solver = (*Gecode)(nil)

// Solve invokes fzn-gecode on the flattened constraints and returns its raw
// output stream. A non-zero exit surfaces as a *ToolError carrying the
// solver's stderr.
func (g *Gecode) Solve(ctx context.Context, fznPath string, opts SolveOptions) (string, error) {
	cmd := g.Cmd
	if cmd == "" {
		cmd = DefaultGecodeCmd
	}

	var args []string
	if opts.AllSolutions {
		args = append(args, "-a")
	} else if opts.NumSolutions > 0 {
		args = append(args, "-n", strconv.Itoa(opts.NumSolutions))
	}
	if opts.Parallel > 0 {
		args = append(args, "-p", strconv.Itoa(opts.Parallel))
	}
	if opts.Seed != 0 {
		args = append(args, "-r", strconv.Itoa(opts.Seed))
	}
	if opts.TimeLimit > 0 {
		args = append(args, "-time", strconv.Itoa(int(opts.TimeLimit.Milliseconds())))
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, fznPath)

	g.Log.Debug().Str("cmd", cmd).Strs("args", args).Msg("invoking solver")

	out, err := g.Runner.Run(ctx, cmd, args, "")
	if err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) {
			g.Log.Error().Str("cmd", cmd).Msg(exitErr.Stderr)
			return "", &ToolError{Tool: cmd, Stderr: exitErr.Stderr, Err: err}
		}
		return "", err
	}
	return out, nil
}
