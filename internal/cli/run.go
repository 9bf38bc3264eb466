package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/seanodes/internal/harness"
	"github.com/roach88/seanodes/internal/son"
	"github.com/roach88/seanodes/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Seed       uint64
	MaxIter    int
	Optimistic bool
	WholeWorld bool
	Validate   string
	Database   string
	Dump       bool
}

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	*harness.Result
	RunID string `json:"run_id,omitempty"`
	Graph string `json:"graph,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Optimize one scenario",
		Long: `Build the graph a scenario describes, run the optimizer passes, and
check the scenario's assertions.

Flags override the scenario file: --seed picks the worklist seed,
--optimistic adds the interprocedural SCCP pass, and --whole-world treats
every function as having only the callers in the graph.

Exit codes:
  0 - Every pass finished and every assertion held
  1 - A pass or an assertion failed
  2 - Command error (unreadable scenario, database error, etc.)

Examples:
  son run testdata/scenarios/constant_fold.yaml
  son run scenario.cue --seed 7 --optimistic --whole-world
  son run scenario.yaml --db runs.db --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Seed, "seed", defaultSeed(), "worklist seed (0 uses the scenario's seed)")
	cmd.Flags().IntVar(&opts.MaxIter, "max-iter", defaultMaxIter(), "worklist pop quota per pass (0 is unlimited)")
	cmd.Flags().BoolVar(&opts.Optimistic, "optimistic", false, "run the optimistic pass after the pessimistic one")
	cmd.Flags().BoolVar(&opts.WholeWorld, "whole-world", false, "assume no callers outside the graph")
	cmd.Flags().StringVar(&opts.Validate, "validate", "end", "stability checks (never|end|every)")
	cmd.Flags().StringVar(&opts.Database, "db", defaultDB(), "record the run in this SQLite history")
	cmd.Flags().BoolVar(&opts.Dump, "dump", false, "print the final graph")

	return cmd
}

func runScenario(ctx context.Context, opts *RunOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger()

	validation, err := son.ParseValidation(opts.Validate)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --validate", err)
	}

	scenario, err := harness.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	if opts.Optimistic {
		scenario.Mode = harness.ModeOptimistic
	}
	if opts.WholeWorld {
		scenario.WholeWorld = true
	}

	h := harness.New(
		harness.WithLogger(logger),
		harness.WithValidation(validation),
		harness.WithMaxIterations(opts.MaxIter),
	)
	var result *harness.Result
	if opts.Seed != 0 {
		result, err = h.RunSeed(scenario, opts.Seed)
	} else {
		result, err = h.Run(scenario)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build scenario", err)
	}

	payload := RunOutput{Result: result}
	if opts.Dump {
		payload.Graph = result.Dump
	}
	if opts.Database != "" {
		id, err := recordRun(ctx, opts.Database, scenario, result)
		if err != nil {
			return err
		}
		payload.RunID = id
		logger.Debug("run recorded", "db", opts.Database, "id", id)
	}

	if out.Text() {
		writeResultText(cmd.OutOrStdout(), scenario, result)
		if opts.Dump {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s", result.Dump)
		}
		if payload.RunID != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded run %s\n", payload.RunID)
		}
	}
	if !result.Pass {
		return out.Fail(CodeScenarioFailed, fmt.Sprintf("scenario %s failed", result.Name), payload)
	}
	if out.Text() {
		return nil
	}
	return out.Success(payload)
}

// writeResultText prints a result summary.
func writeResultText(w io.Writer, scenario *harness.Scenario, r *harness.Result) {
	mark := "✓"
	if !r.Pass {
		mark = "✗"
	}
	mode := scenario.Mode
	if mode == "" {
		mode = harness.ModePessimistic
	}
	fmt.Fprintf(w, "%s %s (seed %d, %s)\n", mark, r.Name, r.Seed, mode)

	funs := make([]string, 0, len(r.Returns))
	for fun := range r.Returns {
		funs = append(funs, fun)
	}
	sort.Strings(funs)
	for _, fun := range funs {
		info := r.Returns[fun]
		fmt.Fprintf(w, "  %s returns %s : %s\n", fun, info.Op, info.Type)
	}
	if len(r.CallGraph) > 0 {
		fmt.Fprintf(w, "  calls: %s\n", strings.Join(r.CallGraph, ", "))
	}
	fmt.Fprintf(w, "  live %d, peepholes %d, gvn hits %d, links %d\n",
		r.Stats.LiveAtFinish, r.Stats.Peepholes, r.Stats.GVNHits, r.Stats.Links)
	fmt.Fprintf(w, "  fingerprint %s\n", r.Fingerprint)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", indentLines(e))
	}
}

func indentLines(s string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n  ")
}

// openStore opens the history database, mapping failures to command errors.
func openStore(ctx context.Context, path string) (*store.Store, error) {
	st, err := store.Open(ctx, path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// recordRun writes a result to the history database and returns its id.
func recordRun(ctx context.Context, path string, scenario *harness.Scenario, r *harness.Result) (string, error) {
	st, err := openStore(ctx, path)
	if err != nil {
		return "", err
	}
	defer st.Close()

	run, nodes := store.FromResult(scenario, r)
	stored, err := st.WriteRun(ctx, run, nodes)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to record run", err)
	}
	return stored.ID, nil
}
