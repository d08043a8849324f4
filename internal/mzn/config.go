package mzn

import (
	"github.com/rs/zerolog"

	"gomzn/internal/cache"
	"gomzn/internal/runner"
)

// Built-in toolchain defaults. The gecode globals library is the default
// because Gecode is the default solver backend.
const (
	DefaultMzn2fznCmd   = "mzn2fzn"
	DefaultSolns2outCmd = "solns2out"
	DefaultGecodeCmd    = "fzn-gecode"
	DefaultGlobalsDir   = "gecode"
)

// Config is the explicit per-pipeline configuration. There are no mutable
// package-level defaults; callers that want different toolchain commands
// construct a different Config. Override precedence is left to the caller
// (the CLI applies flag > environment > built-in default).
type Config struct {
	// Mzn2fznCmd is the flattening tool; DefaultMzn2fznCmd when empty.
	Mzn2fznCmd string

	// Solns2outCmd is the reconstruction tool; DefaultSolns2outCmd when empty.
	Solns2outCmd string

	// GlobalsDir names the globals include directory passed to the
	// flattener with -G; DefaultGlobalsDir when empty.
	GlobalsDir string

	// Runner executes the external tools; an ExecRunner when nil.
	Runner runner.CommandRunner

	// Solver is the stage-2 backend; Gecode when nil.
	Solver Solver

	// Cache, when non-nil, replays previously solved runs keyed by model
	// text, data and solver options.
	Cache *cache.Cache

	// Log receives debug command traces and error-level tool stderr.
	Log zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.Mzn2fznCmd == "" {
		c.Mzn2fznCmd = DefaultMzn2fznCmd
	}
	if c.Solns2outCmd == "" {
		c.Solns2outCmd = DefaultSolns2outCmd
	}
	if c.GlobalsDir == "" {
		c.GlobalsDir = DefaultGlobalsDir
	}
	if c.Runner == nil {
		c.Runner = runner.New(c.Log)
	}
	if c.Solver == nil {
		c.Solver = &Gecode{Runner: c.Runner, Log: c.Log}
	}
	return c
}
