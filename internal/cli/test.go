package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/seanodes/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
	GoldenDir string
	MaxIter   int
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated", "mismatch" or ""
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run every scenario in a directory",
		Long: `Run every .yaml, .yml and .cue scenario in a directory, checking
assertions and, when a golden file exists, the canonical snapshot.

Golden files live in the golden directory as <scenario-file-name>.golden.
By default that is the "golden" directory next to the scenarios directory.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  son test testdata/scenarios
  son test testdata/scenarios --filter "dead_*"
  son test testdata/scenarios --update
  son test testdata/scenarios --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on the file name")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "golden file directory")
	cmd.Flags().IntVar(&opts.MaxIter, "max-iter", defaultMaxIter(), "worklist pop quota per pass (0 is unlimited)")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
	}
	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = filepath.Join(filepath.Dir(filepath.Clean(dir)), "golden")
	}

	files, err := harness.FindScenarioFiles(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	h := harness.New(harness.WithLogger(opts.Logger()), harness.WithMaxIterations(opts.MaxIter))
	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, file := range files {
		stem := fileStem(file)
		if opts.Filter != "" {
			if ok, _ := filepath.Match(opts.Filter, stem); !ok {
				continue
			}
		}
		sr := testScenario(h, opts, file, filepath.Join(goldenDir, stem+".golden"))
		result.Scenarios = append(result.Scenarios, sr)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		writeScenarioText(out, sr)
	}

	if result.Total == 0 {
		out.Printf("No scenarios found.\n")
		if out.Text() {
			return nil
		}
		return out.Success(result)
	}

	out.Printf("\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return out.Fail(CodeTestFailed, fmt.Sprintf("%d scenario(s) failed", result.Failed), result)
	}
	out.Printf("✓ All scenarios passed\n")
	if out.Text() {
		return nil
	}
	return out.Success(result)
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// testScenario runs one scenario file and compares or updates its golden file.
func testScenario(h *harness.Harness, opts *TestOptions, file, goldenPath string) ScenarioResult {
	sr := ScenarioResult{Name: fileStem(file), File: file}

	scenario, err := harness.Load(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := h.Run(scenario)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}
	sr.Pass = result.Pass
	sr.Errors = result.Errors

	snapshot, err := harness.NewSnapshot(scenario, result).MarshalCanonical()
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("snapshot failed: %v", err))
		return sr
	}

	if opts.Update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to create golden directory: %v", err))
			return sr
		}
		if err := os.WriteFile(goldenPath, snapshot, 0o644); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to write golden file: %v", err))
			return sr
		}
		sr.Golden = "updated"
		return sr
	}

	want, err := os.ReadFile(goldenPath)
	switch {
	case os.IsNotExist(err):
		// No golden file: assertions only.
	case err != nil:
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
	case bytes.Equal(bytes.TrimSpace(want), snapshot):
		sr.Golden = "match"
	default:
		sr.Pass = false
		sr.Golden = "mismatch"
		sr.Errors = append(sr.Errors, "snapshot does not match golden file (run with --update to regenerate)")
	}
	return sr
}

func writeScenarioText(out *OutputFormatter, sr ScenarioResult) {
	if sr.Pass {
		if sr.Golden == "updated" {
			out.Printf("✓ %s (golden updated)\n", sr.Name)
		} else {
			out.Printf("✓ %s\n", sr.Name)
		}
		return
	}
	out.Printf("✗ %s\n", sr.Name)
	for _, e := range sr.Errors {
		out.Printf("  %s\n", indentLines(e))
	}
}
