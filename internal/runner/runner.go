// Package runner executes external toolchain programs and captures their output.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// CommandRunner is the interface for executing a named external program.
//
// Run executes the program with the given argument list, feeding stdin to the
// process when non-empty, and returns the captured standard output. A non-zero
// exit is reported as an *ExitError carrying the captured standard error text
// and the exit status.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, stdin string) (string, error)
}

// ExitError reports a subprocess that exited with non-zero status.
type ExitError struct {
	// Cmd is the program name that was executed.
	Cmd string

	// Args is the argument list the program was executed with.
	Args []string

	// Stderr is the captured standard error text, verbatim.
	Stderr string

	// Status is the process exit status.
	Status int
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Cmd, e.Status)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// ExecRunner runs commands via os/exec. It blocks until the subprocess exits.
type ExecRunner struct {
	log zerolog.Logger
}

var _ CommandRunner = (*ExecRunner)(nil)

// New creates an ExecRunner that traces command invocations at debug level.
func New(log zerolog.Logger) *ExecRunner {
	return &ExecRunner{log: log}
}

// Run executes name with args, returning captured stdout.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, stdin string) (string, error) {
	r.log.Debug().Str("cmd", name).Strs("args", args).Msg("running command")

	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return stdout.String(), &ExitError{
				Cmd:    name,
				Args:   args,
				Stderr: stderr.String(),
				Status: exitErr.ExitCode(),
			}
		}
		return "", fmt.Errorf("starting %s: %w", name, err)
	}

	r.log.Debug().Str("cmd", name).Int("stdout_bytes", stdout.Len()).Msg("command completed")
	return stdout.String(), nil
}
