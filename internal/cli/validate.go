package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seanodes/internal/harness"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Build bool
}

// FileValidation is the validation outcome of one scenario file.
type FileValidation struct {
	File   string          `json:"file"`
	Valid  bool            `json:"valid"`
	Errors []ValidateIssue `json:"errors,omitempty"`
}

// ValidateIssue is one problem found in a scenario file.
type ValidateIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidateOutput is the JSON payload of the validate command.
type ValidateOutput struct {
	Files   []FileValidation `json:"files"`
	Invalid int              `json:"invalid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Check scenario files without optimizing them",
		Long: `Check scenario files against the #Scenario CUE schema, reporting
every violation with its position, then run the loader's reference checks.
With --build the graph is also constructed, which catches graph invariant
violations such as a function with two returns.

A directory argument validates every scenario file inside it.

Exit codes:
  0 - Every file is valid
  1 - One or more files are invalid
  2 - Command error`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Build, "build", false, "also build each scenario's graph")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	files, err := expandScenarioArgs(args)
	if err != nil {
		return err
	}

	h := harness.New(harness.WithLogger(opts.Logger()))
	result := ValidateOutput{Files: []FileValidation{}}
	for _, file := range files {
		fv := validateFile(h, file, opts.Build)
		result.Files = append(result.Files, fv)
		if !fv.Valid {
			result.Invalid++
			out.Printf("✗ %s\n", file)
			for _, issue := range fv.Errors {
				if issue.Line > 0 {
					out.Printf("  %d:%d: %s: %s\n", issue.Line, issue.Column, issue.Code, issue.Message)
				} else {
					out.Printf("  %s: %s\n", issue.Code, issue.Message)
				}
			}
			continue
		}
		out.Printf("✓ %s\n", file)
	}

	if result.Invalid > 0 {
		return out.Fail(CodeInvalid, fmt.Sprintf("%d file(s) invalid", result.Invalid), result)
	}
	if out.Text() {
		return nil
	}
	return out.Success(result)
}

// validateFile runs the schema check, then the loader, then optionally the
// graph builder. Each stage runs only when the previous one passed.
func validateFile(h *harness.Harness, file string, build bool) FileValidation {
	fv := FileValidation{File: file, Valid: true}
	add := func(err error) {
		fv.Valid = false
		fv.Errors = append(fv.Errors, toIssue(err))
	}

	if errs := harness.ValidateScenario(file); len(errs) > 0 {
		for _, err := range errs {
			add(err)
		}
		return fv
	}
	scenario, err := harness.Load(file)
	if err != nil {
		add(err)
		return fv
	}
	if build {
		if err := h.Check(scenario); err != nil {
			add(err)
		}
	}
	return fv
}

func toIssue(err error) ValidateIssue {
	var le *harness.LoadError
	if errors.As(err, &le) {
		issue := ValidateIssue{Code: le.Code, Message: le.Message}
		if le.Pos.IsValid() {
			issue.Line = le.Pos.Line()
			issue.Column = le.Pos.Column()
		}
		return issue
	}
	return ValidateIssue{Code: "E_UNKNOWN", Message: err.Error()}
}
