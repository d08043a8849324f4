package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gomzn/internal/dzn"
	"gomzn/internal/logging"
	"gomzn/internal/mzn"
	"gomzn/internal/runner"
)

// Environment overrides for toolchain commands, loaded from the process
// environment and an optional .env file. Flags take precedence.
const (
	envMzn2fzn    = "GOMZN_MZN2FZN"
	envSolns2out  = "GOMZN_SOLNS2OUT"
	envGecode     = "GOMZN_FZN_GECODE"
	envGlobalsDir = "GOMZN_GLOBALS_DIR"
)

type solveOptions struct {
	keep         bool
	raw          bool
	serialize    bool
	asJSON       bool
	outputBase   string
	globalsDir   string
	outputVars   []string
	data         []string
	mzn2fznCmd   string
	solns2outCmd string
	solverCmd    string
	allSolutions bool
	numSolutions int
	parallel     int
	seed         int
	timeout      time.Duration
}

func (a *app) newSolveCmd() *cobra.Command {
	opts := &solveOptions{}

	cmd := &cobra.Command{
		Use:   "solve MODEL.mzn [DATA.dzn...]",
		Short: "Flatten, solve and reconstruct a constraint model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSolve(cmd, opts, args[0], args[1:])
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.keep, "keep", false, "retain the generated mzn, fzn and ozn files")
	f.BoolVar(&opts.raw, "raw", false, "print solution blocks formatted by the model's own output statement")
	f.BoolVar(&opts.serialize, "serialize", false, "isolate generated file names from concurrent runs")
	f.BoolVar(&opts.asJSON, "json", false, "print decoded solutions as a JSON array")
	f.StringVar(&opts.outputBase, "output-base", "", "base name for generated files")
	f.StringVar(&opts.globalsDir, "globals-dir", "", "globals include directory passed to the flattener")
	f.StringSliceVar(&opts.outputVars, "output-var", nil, "variable to emit (defaults to the model's free variables)")
	f.StringArrayVarP(&opts.data, "data", "D", nil, "inline data assignment, name=value (repeatable)")
	f.StringVar(&opts.mzn2fznCmd, "mzn2fzn-cmd", "", "flattening tool command")
	f.StringVar(&opts.solns2outCmd, "solns2out-cmd", "", "reconstruction tool command")
	f.StringVar(&opts.solverCmd, "solver-cmd", "", "solver backend command")
	f.BoolVarP(&opts.allSolutions, "all-solutions", "a", false, "enumerate all solutions")
	f.IntVarP(&opts.numSolutions, "num-solutions", "n", 0, "stop after this many solutions")
	f.IntVarP(&opts.parallel, "parallel", "p", 0, "solver threads")
	f.IntVar(&opts.seed, "seed", 0, "solver random seed")
	f.DurationVar(&opts.timeout, "timeout", 0, "solver time limit")

	return cmd
}

func (a *app) runSolve(cmd *cobra.Command, opts *solveOptions, modelPath string, dznFiles []string) error {
	// a missing .env file is not an error
	_ = godotenv.Load()

	log := logging.New(a.errOut, a.verbose)
	run := runner.New(log)

	cfg := mzn.Config{
		Mzn2fznCmd:   firstOf(opts.mzn2fznCmd, os.Getenv(envMzn2fzn)),
		Solns2outCmd: firstOf(opts.solns2outCmd, os.Getenv(envSolns2out)),
		GlobalsDir:   firstOf(opts.globalsDir, os.Getenv(envGlobalsDir)),
		Runner:       run,
		Solver: &mzn.Gecode{
			Cmd:    firstOf(opts.solverCmd, os.Getenv(envGecode)),
			Runner: run,
			Log:    log,
		},
		Log: log,
	}

	data, err := parseDataArgs(opts.data)
	if err != nil {
		return err
	}

	pipelineOpts := mzn.Options{
		DznFiles:   dznFiles,
		Data:       data,
		Keep:       opts.keep,
		OutputBase: opts.outputBase,
		Serialize:  opts.serialize,
		OutputVars: opts.outputVars,
		Solver: mzn.SolveOptions{
			AllSolutions: opts.allSolutions,
			NumSolutions: opts.numSolutions,
			Parallel:     opts.parallel,
			Seed:         opts.seed,
			TimeLimit:    opts.timeout,
		},
	}

	p := mzn.New(cfg)
	model := mzn.NewModel(modelPath)
	ctx := cmd.Context()

	if opts.raw {
		blocks, err := p.SolveRaw(ctx, model, pipelineOpts)
		if err != nil {
			return err
		}
		a.printRaw(blocks)
		return nil
	}

	solns, err := p.Solve(ctx, model, pipelineOpts)
	if err != nil {
		return err
	}
	return a.printDecoded(solns, opts.asJSON)
}

func (a *app) printRaw(blocks []string) {
	for _, b := range blocks {
		fmt.Fprintln(a.out, b)
		fmt.Fprintln(a.out, "----------")
	}
	fmt.Fprintln(a.out, "==========")
}

func (a *app) printDecoded(solns []dzn.Assignment, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(solns)
	}
	for _, s := range solns {
		frags, err := dzn.Marshal(s)
		if err != nil {
			return err
		}
		for _, f := range frags {
			fmt.Fprintln(a.out, f)
		}
		fmt.Fprintln(a.out, "----------")
	}
	fmt.Fprintln(a.out, "==========")
	return nil
}

// parseDataArgs decodes repeated -D name=value assignments through the dzn
// value parser.
func parseDataArgs(entries []string) (dzn.Assignment, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	data := dzn.Assignment{}
	for _, entry := range entries {
		name, raw, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid data assignment %q: want name=value", entry)
		}
		v, err := dzn.ParseValue(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid data assignment %q: %w", entry, err)
		}
		data[strings.TrimSpace(name)] = v
	}
	return data, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
