package cli

import (
	"errors"

	"gomzn/internal/mzn"
)

// Exit codes let scripts branch on the run outcome without parsing
// messages. Terminal solving outcomes get their own codes because they are
// properties of the problem, not infrastructure faults.
const (
	ExitSuccess       = 0
	ExitError         = 1
	ExitToolFailure   = 2
	ExitUnsatisfiable = 3
	ExitUnknown       = 4
	ExitUnbounded     = 5
)

// ExitCode maps a run error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch {
	case errors.Is(err, mzn.ErrUnsatisfiable):
		return ExitUnsatisfiable
	case errors.Is(err, mzn.ErrUnknown):
		return ExitUnknown
	case errors.Is(err, mzn.ErrUnbounded):
		return ExitUnbounded
	}
	var toolErr *mzn.ToolError
	if errors.As(err, &toolErr) {
		return ExitToolFailure
	}
	return ExitError
}
