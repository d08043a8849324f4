package mzn

import (
	"fmt"
	"strings"
)

// Sentinel lines of the solver output stream protocol. Comparison is an
// exact match on the trimmed line; no prefix matching.
const (
	solnSep           = "----------"
	searchCompleteMsg = "=========="
	unsatMsg          = "=====UNSATISFIABLE====="
	unknownMsg        = "=====UNKNOWN====="
	unboundedMsg      = "=====UNBOUNDED====="
)

// streamStatus tags the terminal condition of a scanned solution stream.
type streamStatus int

const (
	// statusIncomplete: the stream ended without any terminal sentinel.
	// Blocks closed by separators are still valid.
	statusIncomplete streamStatus = iota

	// statusComplete: the search-complete sentinel was seen.
	statusComplete

	statusUnsatisfiable
	statusUnknown
	statusUnbounded
)

// scanStream scans a raw solution stream line by line and collects solution
// blocks. A block is the trimmed lines accumulated since the previous
// separator, joined with newlines. Scanning stops at the first terminal
// sentinel; accumulator content not yet closed by a separator is discarded
// (trailing solver metadata, not a solution).
//
// scanStream is a pure function of its input: no I/O, no hidden state.
func scanStream(text string) ([]string, streamStatus) {
	var solns []string
	var curr []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch line {
		case solnSep:
			solns = append(solns, strings.Join(curr, "\n"))
			curr = curr[:0]
		case searchCompleteMsg:
			return solns, statusComplete
		case unknownMsg:
			return solns, statusUnknown
		case unsatMsg:
			return solns, statusUnsatisfiable
		case unboundedMsg:
			return solns, statusUnbounded
		default:
			curr = append(curr, line)
		}
	}
	return solns, statusIncomplete
}

// ParseSolutions parses the reconstructed solver output into an ordered
// sequence of solution blocks. Fatal sentinels map to the outcome errors;
// truncated streams return the separator-closed blocks without error.
func ParseSolutions(text string) ([]string, error) {
	solns, status := scanStream(text)
	switch status {
	case statusComplete, statusIncomplete:
		return solns, nil
	case statusUnsatisfiable:
		return nil, ErrUnsatisfiable
	case statusUnknown:
		return nil, ErrUnknown
	case statusUnbounded:
		return nil, ErrUnbounded
	}
	return nil, fmt.Errorf("unhandled stream status %d", status)
}
