package mzn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gomzn/internal/cache"
	"gomzn/internal/dzn"
	"gomzn/internal/runner"
)

// Options controls one pipeline run.
type Options struct {
	// DznFiles are auxiliary data files passed to the flattening stage.
	DznFiles []string

	// Data is inline data, encoded through the dzn codec and passed to the
	// flattener as a single -D argument.
	Data dzn.Assignment

	// Keep retains the generated mzn, fzn and ozn files after the run.
	// Generated files are not meant to be kept; this exists for debugging.
	Keep bool

	// OutputBase overrides the base name for the generated model file.
	OutputBase string

	// Serialize derives a fresh base name per run so concurrent runs
	// sharing a working directory do not collide on generated files. It
	// does not serialize the solving itself.
	Serialize bool

	// OutputVars names the variables emitted by the decodable output
	// statement; defaults to the model's free variables. Only used by
	// Solve, never by SolveRaw.
	OutputVars []string

	// GlobalsDir overrides the configured globals include directory.
	GlobalsDir string

	// Solver holds the stage-2 backend options.
	Solver SolveOptions
}

// Pipeline drives the three-stage toolchain: flatten the model to
// flattened-constraints and output-spec files, solve the constraints, and
// reconstruct the solver's raw stream into solution blocks.
//
// All state for a run lives in the call; a Pipeline is safe for concurrent
// use as long as callers opting into a shared working directory request
// Serialize.
type Pipeline struct {
	cfg Config
}

// New creates a Pipeline from cfg, filling unset fields with the built-in
// toolchain defaults.
func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg.withDefaults()}
}

// Solve runs the pipeline and decodes each solution block into a variable
// assignment. The model is rewritten with a dzn output statement (over
// opts.OutputVars, or the model's free variables) so the blocks decode
// through the dzn codec.
func (p *Pipeline) Solve(ctx context.Context, m *Model, opts Options) ([]dzn.Assignment, error) {
	blocks, err := p.run(ctx, m, opts, false)
	if err != nil {
		return nil, err
	}
	solns := make([]dzn.Assignment, 0, len(blocks))
	for i, block := range blocks {
		a, err := dzn.Parse(block)
		if err != nil {
			return nil, fmt.Errorf("decoding solution %d: %w", i, err)
		}
		solns = append(solns, a)
	}
	return solns, nil
}

// SolveRaw runs the pipeline and returns the verbatim solution blocks,
// formatted by the model's own output statement.
func (p *Pipeline) SolveRaw(ctx context.Context, m *Model, opts Options) ([]string, error) {
	return p.run(ctx, m, opts, true)
}

// run executes the three stages. The whole solution list is materialized
// before returning; piping the solver output directly into the
// reconstruction stage was deliberately deferred because upstream tool
// behavior under streamed input was never validated.
func (p *Pipeline) run(ctx context.Context, m *Model, opts Options, raw bool) (blocks []string, err error) {
	if !raw {
		if err := m.DznOutputStmt(opts.OutputVars); err != nil {
			return nil, err
		}
	}
	m.SetOutputBase(opts.OutputBase)
	if opts.Serialize {
		m.Serialize()
	}

	var key string
	if p.cfg.Cache != nil {
		key = p.cacheKey(m, opts, raw)
		if key != "" {
			if hit, ok := p.cfg.Cache.Get(key); ok {
				p.cfg.Log.Debug().Int("solutions", len(hit)).Msg("replaying cached run")
				return hit, nil
			}
		}
	}

	mznFile, owned, err := m.Compile()
	if err != nil {
		return nil, err
	}
	defer func() {
		if !opts.Keep && owned {
			p.removeArtifact(mznFile)
		}
	}()

	fznFile, oznFile, err := p.flatten(ctx, mznFile, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if !opts.Keep {
			p.removeArtifact(fznFile)
			p.removeArtifact(oznFile)
		}
	}()

	if fznFile == "" {
		return nil, fmt.Errorf("%s produced no flattened constraints for %s", p.cfg.Mzn2fznCmd, mznFile)
	}

	solverOut, err := p.cfg.Solver.Solve(ctx, fznFile, opts.Solver)
	if err != nil {
		return nil, err
	}

	reconstructed, err := p.reconstruct(ctx, solverOut, oznFile)
	if err != nil {
		return nil, err
	}

	blocks, err = ParseSolutions(reconstructed)
	if err != nil {
		return nil, err
	}
	p.cfg.Log.Debug().Int("solutions", len(blocks)).Msg("search complete")

	if p.cfg.Cache != nil && key != "" {
		p.cfg.Cache.Put(key, blocks)
	}
	return blocks, nil
}

// flatten runs the flattening tool and probes for the artifacts it may have
// produced. A model may legitimately produce no output-spec file (no free
// output variables), so absence of either artifact is reported as an empty
// path, not an error.
func (p *Pipeline) flatten(ctx context.Context, mznFile string, opts Options) (fznFile, oznFile string, err error) {
	var args []string

	globalsDir := opts.GlobalsDir
	if globalsDir == "" {
		globalsDir = p.cfg.GlobalsDir
	}
	if globalsDir != "" {
		args = append(args, "-G", globalsDir)
	}

	if len(opts.Data) > 0 {
		frags, err := dzn.Marshal(opts.Data)
		if err != nil {
			return "", "", fmt.Errorf("encoding inline data: %w", err)
		}
		// one argv element, so the tool sees a single -D value
		args = append(args, "-D", strings.Join(frags, " "))
	}

	args = append(args, mznFile)
	args = append(args, opts.DznFiles...)

	if _, err := p.cfg.Runner.Run(ctx, p.cfg.Mzn2fznCmd, args, ""); err != nil {
		return "", "", p.toolError(p.cfg.Mzn2fznCmd, err)
	}

	base := strings.TrimSuffix(mznFile, filepath.Ext(mznFile))
	return probeArtifact(base + ".fzn"), probeArtifact(base + ".ozn"), nil
}

// reconstruct feeds the solver's raw stream to the reconstruction tool on
// stdin, together with the output-spec path when stage 1 produced one.
func (p *Pipeline) reconstruct(ctx context.Context, solverOut, oznFile string) (string, error) {
	var args []string
	if oznFile != "" {
		args = append(args, oznFile)
	}
	out, err := p.cfg.Runner.Run(ctx, p.cfg.Solns2outCmd, args, solverOut)
	if err != nil {
		return "", p.toolError(p.cfg.Solns2outCmd, err)
	}
	return out, nil
}

// cacheKey fingerprints everything that determines a run's solutions. An
// empty key disables caching for the run (for example when a data file is
// unreadable; the flattener will report that properly).
func (p *Pipeline) cacheKey(m *Model, opts Options, raw bool) string {
	text, err := m.Text()
	if err != nil {
		return ""
	}
	frags, err := dzn.Marshal(opts.Data)
	if err != nil {
		return ""
	}

	parts := []string{
		strconv.FormatBool(raw),
		text,
		strings.Join(frags, " "),
		opts.GlobalsDir + "|" + p.cfg.GlobalsDir,
		fmt.Sprintf("%+v", opts.Solver),
	}
	for _, f := range opts.DznFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			return ""
		}
		parts = append(parts, string(data))
	}
	return cache.Key(parts...)
}

func (p *Pipeline) toolError(tool string, err error) error {
	var exitErr *runner.ExitError
	if errors.As(err, &exitErr) {
		p.cfg.Log.Error().Str("tool", tool).Msg(exitErr.Stderr)
		return &ToolError{Tool: tool, Stderr: exitErr.Stderr, Err: err}
	}
	return fmt.Errorf("running %s: %w", tool, err)
}

// removeArtifact deletes a generated file, tolerating artifacts that were
// never produced. Deletion is idempotent.
func (p *Pipeline) removeArtifact(path string) {
	if path == "" {
		return
	}
	err := os.Remove(path)
	switch {
	case err == nil:
		p.cfg.Log.Debug().Str("path", path).Msg("deleted artifact")
	case os.IsNotExist(err):
		// the stage may never have produced it
	default:
		p.cfg.Log.Warn().Err(err).Str("path", path).Msg("could not delete artifact")
	}
}

func probeArtifact(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
