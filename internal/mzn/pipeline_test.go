package mzn

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gomzn/internal/cache"
	"gomzn/internal/dzn"
	"gomzn/internal/runner"
)

const twoVarModel = `var 0..10: x;
var 0..10: y;
constraint x + y == 7;
solve maximize x;
`

// flattenToFiles fakes the flattening tool: it locates the model argument
// and writes the artifacts next to it.
func flattenToFiles(t *testing.T, writeFzn, writeOzn bool) func(args []string, stdin string) (string, error) {
	t.Helper()
	return func(args []string, _ string) (string, error) {
		var mznFile string
		for _, a := range args {
			if strings.HasSuffix(a, ".mzn") {
				mznFile = a
				break
			}
		}
		if mznFile == "" {
			t.Fatalf("no model argument in %v", args)
		}
		base := strings.TrimSuffix(mznFile, ".mzn")
		if writeFzn {
			if err := os.WriteFile(base+".fzn", []byte("flattened"), 0o644); err != nil {
				return "", err
			}
		}
		if writeOzn {
			if err := os.WriteFile(base+".ozn", []byte("outputspec"), 0o644); err != nil {
				return "", err
			}
		}
		return "", nil
	}
}

// passthroughSolns2out fakes the reconstruction tool by echoing its stdin.
func passthroughSolns2out(args []string, stdin string) (string, error) {
	return stdin, nil
}

type solverRecorder struct {
	fznPath string
	calls   int
	output  string
	err     error
}

func (s *solverRecorder) Solve(_ context.Context, fznPath string, _ SolveOptions) (string, error) {
	s.calls++
	s.fznPath = fznPath
	return s.output, s.err
}

func newTestPipeline(fake *runner.FakeRunner, solver Solver, c *cache.Cache) *Pipeline {
	return New(Config{
		Runner: fake,
		Solver: solver,
		Cache:  c,
		Log:    zerolog.Nop(),
	})
}

func artifactPaths(dir string) (mzn, fzn, ozn string) {
	base := filepath.Join(dir, "job")
	return base + ".mzn", base + ".fzn", base + ".ozn"
}

func TestPipeline_SolveEndToEnd(t *testing.T) {
	dir := t.TempDir()
	fake := runner.NewFake()
	fake.Handle("mzn2fzn", flattenToFiles(t, true, true))
	fake.Handle("solns2out", passthroughSolns2out)

	solver := &solverRecorder{output: "x = 7;\ny = 0;\n----------\n==========\n"}
	p := newTestPipeline(fake, solver, nil)

	m := NewModelString(twoVarModel)
	solns, err := p.Solve(context.Background(), m, Options{
		OutputBase: filepath.Join(dir, "job"),
	})
	require.NoError(t, err)

	require.Len(t, solns, 1)
	assert.Equal(t, dzn.Assignment{"x": 7, "y": 0}, solns[0])

	mznFile, fznFile, oznFile := artifactPaths(dir)
	assert.Equal(t, fznFile, solver.fznPath, "solver must receive the flattened-constraints path")

	recon := fake.CallsTo("solns2out")
	require.Len(t, recon, 1)
	assert.Equal(t, []string{oznFile}, recon[0].Args, "reconstruction must receive the output-spec path")
	assert.Equal(t, solver.output, recon[0].Stdin, "solver output must be fed on stdin")

	for _, f := range []string{mznFile, fznFile, oznFile} {
		assert.NoFileExists(t, f, "artifact must be cleaned up")
	}
}

func TestPipeline_SolveRawVerbatimBlocks(t *testing.T) {
	dir := t.TempDir()
	fake := runner.NewFake()
	fake.Handle("mzn2fzn", flattenToFiles(t, true, true))
	fake.Handle("solns2out", passthroughSolns2out)

	solver := &solverRecorder{output: "first line\nsecond line\n----------\nthird\n----------\n==========\n"}
	p := newTestPipeline(fake, solver, nil)

	blocks, err := p.SolveRaw(context.Background(), NewModelString(twoVarModel), Options{
		OutputBase: filepath.Join(dir, "job"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first line\nsecond line", "third"}, blocks)
}

func TestPipeline_KeepRetainsArtifacts(t *testing.T) {
	dir := t.TempDir()
	fake := runner.NewFake()
	fake.Handle("mzn2fzn", flattenToFiles(t, true, true))
	fake.Handle("solns2out", passthroughSolns2out)

	solver := &solverRecorder{output: "x = 7;\ny = 0;\n----------\n==========\n"}
	p := newTestPipeline(fake, solver, nil)

	_, err := p.Solve(context.Background(), NewModelString(twoVarModel), Options{
		OutputBase: filepath.Join(dir, "job"),
		Keep:       true,
	})
	require.NoError(t, err)

	mznFile, fznFile, oznFile := artifactPaths(dir)
	for _, f := range []string{mznFile, fznFile, oznFile} {
		assert.FileExists(t, f, "produced artifact must survive a keep run")
	}
}

func TestPipeline_FlattenFailureShortCircuits(t *testing.T) {
	dir := t.TempDir()
	fake := runner.NewFake()
	fake.Handle("mzn2fzn", func(args []string, stdin string) (string, error) {
		return "", &runner.ExitError{Cmd: "mzn2fzn", Stderr: "syntax error at line 3", Status: 1}
	})

	solver := &solverRecorder{}
	p := newTestPipeline(fake, solver, nil)

	_, err := p.Solve(context.Background(), NewModelString(twoVarModel), Options{
		OutputBase: filepath.Join(dir, "job"),
	})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "mzn2fzn", toolErr.Tool)
	assert.Equal(t, "syntax error at line 3", toolErr.Stderr)

	assert.Zero(t, solver.calls, "stage 2 must not run after a stage-1 failure")
	assert.Empty(t, fake.CallsTo("solns2out"), "stage 3 must not run after a stage-1 failure")

	mznFile, _, _ := artifactPaths(dir)
	assert.NoFileExists(t, mznFile, "the model artifact is removed even on stage-1 failure")
}

func TestPipeline_TerminalOutcomesCleanUp(t *testing.T) {
	cases := []struct {
		name   string
		stream string
		want   error
	}{
		{"unsatisfiable", "=====UNSATISFIABLE=====\n", ErrUnsatisfiable},
		{"unknown", "=====UNKNOWN=====\n", ErrUnknown},
		{"unbounded", "=====UNBOUNDED=====\n", ErrUnbounded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			fake := runner.NewFake()
			fake.Handle("mzn2fzn", flattenToFiles(t, true, true))
			fake.Handle("solns2out", passthroughSolns2out)

			p := newTestPipeline(fake, &solverRecorder{output: tc.stream}, nil)

			_, err := p.Solve(context.Background(), NewModelString(twoVarModel), Options{
				OutputBase: filepath.Join(dir, "job"),
			})
			require.ErrorIs(t, err, tc.want)

			mznFile, fznFile, oznFile := artifactPaths(dir)
			for _, f := range []string{mznFile, fznFile, oznFile} {
				assert.NoFileExists(t, f, "artifacts must be cleaned up on a terminal outcome")
			}
		})
	}
}

func TestPipeline_MissingOutputSpecIsLegal(t *testing.T) {
	dir := t.TempDir()
	fake := runner.NewFake()
	fake.Handle("mzn2fzn", flattenToFiles(t, true, false))
	fake.Handle("solns2out", passthroughSolns2out)

	solver := &solverRecorder{output: "x = 7;\ny = 0;\n----------\n==========\n"}
	p := newTestPipeline(fake, solver, nil)

	_, err := p.Solve(context.Background(), NewModelString(twoVarModel), Options{
		OutputBase: filepath.Join(dir, "job"),
	})
	require.NoError(t, err)

	recon := fake.CallsTo("solns2out")
	require.Len(t, recon, 1)
	assert.Empty(t, recon[0].Args, "no output-spec argument when stage 1 produced none")
}

func TestPipeline_MissingFlattenedConstraintsIsFatal(t *testing.T) {
	dir := t.TempDir()
	fake := runner.NewFake()
	fake.Handle("mzn2fzn", flattenToFiles(t, false, false))

	solver := &solverRecorder{}
	p := newTestPipeline(fake, solver, nil)

	_, err := p.Solve(context.Background(), NewModelString(twoVarModel), Options{
		OutputBase: filepath.Join(dir, "job"),
	})
	require.Error(t, err)
	assert.Zero(t, solver.calls)
}

func TestPipeline_FlattenArguments(t *testing.T) {
	dir := t.TempDir()
	fake := runner.NewFake()
	fake.Handle("mzn2fzn", flattenToFiles(t, true, true))
	fake.Handle("solns2out", passthroughSolns2out)

	dataFile := filepath.Join(dir, "extra.dzn")
	require.NoError(t, os.WriteFile(dataFile, []byte("m = 3;\n"), 0o644))

	solver := &solverRecorder{output: "==========\n"}
	p := newTestPipeline(fake, solver, nil)

	_, err := p.SolveRaw(context.Background(), NewModelString(twoVarModel), Options{
		OutputBase: filepath.Join(dir, "job"),
		GlobalsDir: "linear",
		Data:       dzn.Assignment{"n": 4, "flag": true},
		DznFiles:   []string{dataFile},
	})
	require.NoError(t, err)

	flatten := fake.CallsTo("mzn2fzn")
	require.Len(t, flatten, 1)

	mznFile, _, _ := artifactPaths(dir)
	want := []string{"-G", "linear", "-D", "flag = true; n = 4;", mznFile, dataFile}
	assert.Equal(t, want, flatten[0].Args)
}

func TestPipeline_CacheReplaysRun(t *testing.T) {
	dir := t.TempDir()
	fake := runner.NewFake()
	fake.Handle("mzn2fzn", flattenToFiles(t, true, true))
	fake.Handle("solns2out", passthroughSolns2out)

	solver := &solverRecorder{output: "x = 7;\ny = 0;\n----------\n==========\n"}
	c, err := cache.New(8)
	require.NoError(t, err)

	p := newTestPipeline(fake, solver, c)

	opts := Options{OutputBase: filepath.Join(dir, "job")}
	first, err := p.Solve(context.Background(), NewModelString(twoVarModel), opts)
	require.NoError(t, err)
	require.Equal(t, 1, solver.calls)

	second, err := p.Solve(context.Background(), NewModelString(twoVarModel), opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, solver.calls, "a cached run must not invoke the solver again")
	assert.Len(t, fake.CallsTo("mzn2fzn"), 1, "a cached run must not invoke the flattener again")
}

func TestGecode_ArgumentConstruction(t *testing.T) {
	fake := runner.NewFake()
	fake.Handle("fzn-gecode", func(args []string, stdin string) (string, error) {
		return "==========\n", nil
	})

	g := &Gecode{Runner: fake, Log: zerolog.Nop()}
	_, err := g.Solve(context.Background(), "job.fzn", SolveOptions{
		NumSolutions: 5,
		Parallel:     2,
		Seed:         7,
	})
	require.NoError(t, err)

	calls := fake.CallsTo("fzn-gecode")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-n", "5", "-p", "2", "-r", "7", "job.fzn"}, calls[0].Args)
}

func TestGecode_SolverFailure(t *testing.T) {
	fake := runner.NewFake()
	fake.Handle("fzn-gecode", func(args []string, stdin string) (string, error) {
		return "", &runner.ExitError{Cmd: "fzn-gecode", Stderr: "cannot open file", Status: 1}
	})

	g := &Gecode{Runner: fake, Log: zerolog.Nop()}
	_, err := g.Solve(context.Background(), "job.fzn", SolveOptions{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "fzn-gecode", toolErr.Tool)
	assert.Equal(t, "cannot open file", toolErr.Stderr)

	var exitErr *runner.ExitError
	assert.True(t, errors.As(err, &exitErr), "the underlying exit error must stay unwrappable")
}
