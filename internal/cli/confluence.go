package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seanodes/internal/harness"
	"github.com/roach88/seanodes/internal/store"
)

// ConfluenceOptions holds flags for the confluence command.
type ConfluenceOptions struct {
	*RootOptions
	Seeds      int
	MaxIter    int
	Optimistic bool
	WholeWorld bool
	Database   string
}

// ConfluenceOutput is the JSON payload of the confluence command.
type ConfluenceOutput struct {
	*harness.ConfluenceReport
	// History groups every recorded run of the scenario, when --db is set.
	History []store.FingerprintCount `json:"history,omitempty"`
}

// NewConfluenceCommand creates the confluence command.
func NewConfluenceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfluenceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "confluence <scenario>",
		Short: "Check that every worklist seed reaches the same graph",
		Long: `Optimize a scenario once per seed 1..N and compare the census
fingerprints of the final graphs. The optimizer is confluent on the
scenario when every seed reaches the same fingerprint.

With --db every seed's run is recorded, and the report also groups all
recorded runs of the scenario by fingerprint.

Exit codes:
  0 - Every seed reached the same graph
  1 - Seeds disagree, or a pass failed
  2 - Command error

Examples:
  son confluence testdata/scenarios/counting_loop.yaml --seeds 32
  son confluence scenario.cue --optimistic --db runs.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfluence(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Seeds, "seeds", 16, "number of seeds to try")
	cmd.Flags().IntVar(&opts.MaxIter, "max-iter", defaultMaxIter(), "worklist pop quota per pass (0 is unlimited)")
	cmd.Flags().BoolVar(&opts.Optimistic, "optimistic", false, "run the optimistic pass after the pessimistic one")
	cmd.Flags().BoolVar(&opts.WholeWorld, "whole-world", false, "assume no callers outside the graph")
	cmd.Flags().StringVar(&opts.Database, "db", defaultDB(), "record every seed's run in this SQLite history")

	return cmd
}

func runConfluence(ctx context.Context, opts *ConfluenceOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := newFormatter(opts.RootOptions, cmd)
	if opts.Seeds < 1 {
		return NewExitError(ExitCommandError, "--seeds must be at least 1")
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

	seeds := make([]uint64, opts.Seeds)
	for i := range seeds {
		seeds[i] = uint64(i + 1)
	}
	h := harness.New(harness.WithLogger(opts.Logger()), harness.WithMaxIterations(opts.MaxIter))
	report, err := h.Confluence(scenario, seeds)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build scenario", err)
	}
	payload := ConfluenceOutput{ConfluenceReport: report}

	if opts.Database != "" {
		history, err := recordSeeds(ctx, h, opts.Database, scenario, seeds)
		if err != nil {
			return err
		}
		payload.History = history
	}

	if out.Text() {
		w := cmd.OutOrStdout()
		for _, r := range report.Runs {
			if r.Error != "" {
				fmt.Fprintf(w, "  seed %-4d %s\n", r.Seed, indentLines(r.Error))
				continue
			}
			fmt.Fprintf(w, "  seed %-4d %s\n", r.Seed, shortFingerprint(r.Fingerprint))
		}
		for _, fc := range payload.History {
			fmt.Fprintf(w, "  history %s: %d run(s), seeds %v\n", shortFingerprint(fc.Fingerprint), fc.Runs, fc.Seeds)
		}
		if report.Confluent {
			fmt.Fprintf(w, "✓ %s is confluent over %d seeds\n", report.Scenario, len(seeds))
		} else {
			fmt.Fprintf(w, "✗ %s reached %d distinct graphs over %d seeds\n", report.Scenario, len(report.Distinct), len(seeds))
		}
	}
	if !report.Confluent {
		return out.Fail(CodeNotConfluent, fmt.Sprintf("scenario %s is not confluent", report.Scenario), payload)
	}
	if out.Text() {
		return nil
	}
	return out.Success(payload)
}

// recordSeeds runs the scenario at every seed, records each run, and
// returns the scenario's recorded history grouped by fingerprint.
func recordSeeds(ctx context.Context, h *harness.Harness, path string, scenario *harness.Scenario, seeds []uint64) ([]store.FingerprintCount, error) {
	st, err := openStore(ctx, path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	for _, seed := range seeds {
		result, err := h.RunSeed(scenario, seed)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to build scenario", err)
		}
		run, nodes := store.FromResult(scenario, result)
		if _, err := st.WriteRun(ctx, run, nodes); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to record run", err)
		}
	}
	history, err := st.DistinctFingerprints(ctx, scenario.Name)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read history", err)
	}
	return history, nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}
