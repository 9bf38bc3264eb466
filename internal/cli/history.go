package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/seanodes/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database     string
	Limit        int
	Run          string
	Fingerprints bool
}

// RunDetail is the JSON payload of history --run.
type RunDetail struct {
	store.Run
	Nodes []store.Node `json:"nodes"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [scenario]",
		Short: "Show recorded optimizer runs",
		Long: `List runs recorded by "son run --db" and "son confluence --db", oldest
first, optionally only those of one scenario.

  --run <id>        show one run with the final type of every live node
  --fingerprints    group a scenario's runs by final graph

Examples:
  son history --db runs.db
  son history constant_fold --db runs.db --limit 5
  son history counting_loop --db runs.db --fingerprints`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario := ""
			if len(args) == 1 {
				scenario = args[0]
			}
			return runHistory(cmd.Context(), opts, scenario, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", defaultDB(), "path to the SQLite run history")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the most recent N runs")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show one run by id")
	cmd.Flags().BoolVar(&opts.Fingerprints, "fingerprints", false, "group runs by fingerprint (needs a scenario)")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, scenario string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Database == "" {
		return NewExitError(ExitCommandError, "no database: pass --db or set "+EnvDB)
	}
	if opts.Fingerprints && scenario == "" {
		return NewExitError(ExitCommandError, "--fingerprints needs a scenario")
	}
	out := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(ctx, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	w := cmd.OutOrStdout()
	switch {
	case opts.Run != "":
		run, err := st.ReadRun(ctx, opts.Run)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.Run))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		nodes, err := st.ReadRunNodes(ctx, run.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run nodes", err)
		}
		if !out.Text() {
			return out.Success(RunDetail{Run: run, Nodes: nodes})
		}
		writeRunLine(w, run)
		for _, e := range run.Errors {
			fmt.Fprintf(w, "  %s\n", indentLines(e))
		}
		for _, n := range nodes {
			fmt.Fprintf(w, "  %4d %-8s %s\n", n.ID, n.Op, n.Type)
		}
		return nil

	case opts.Fingerprints:
		groups, err := st.DistinctFingerprints(ctx, scenario)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read history", err)
		}
		if !out.Text() {
			return out.Success(groups)
		}
		if len(groups) == 0 {
			fmt.Fprintf(w, "No runs of %s recorded.\n", scenario)
		}
		for _, g := range groups {
			fmt.Fprintf(w, "%s  %d run(s)  seeds %v\n", shortFingerprint(g.Fingerprint), g.Runs, g.Seeds)
		}
		return nil
	}

	runs, err := st.ListRuns(ctx, scenario, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}
	if !out.Text() {
		return out.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
	}
	for _, run := range runs {
		writeRunLine(w, run)
	}
	return nil
}

func writeRunLine(w io.Writer, run store.Run) {
	mark := "✓"
	if !run.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%4d %s %s %s seed=%d mode=%s live=%d %s\n",
		run.Seq, mark, run.ID, run.Scenario, run.Seed, run.Mode, run.Stats.LiveAtFinish, shortFingerprint(run.Fingerprint))
}
