package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seanodes/internal/harness"
	"github.com/roach88/seanodes/internal/types"
)

// TypeOutput is the JSON payload of the types command.
type TypeOutput struct {
	Op     string `json:"op"`
	A      string `json:"a"`
	B      string `json:"b,omitempty"`
	Result string `json:"result"`
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types <meet|join|isa|dual|show> <type> [type]",
		Short: "Evaluate lattice operations on type expressions",
		Long: `Evaluate a lattice operation using the scenario type syntax:
5, 2.5, int[0,10], int, ~int, bool, i8..u32, flt, f32, ~flt, top, bot,
ctrl, xctrl.

  meet A B   greatest lower bound
  join A B   least upper bound
  isa A B    whether A is at or above B
  dual A     the mirror image of A
  show A     A with its dual and classification

Examples:
  son types meet 3 int[0,10]
  son types join int[0,10] int[5,20]
  son types isa 5 bool`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runTypes(opts *RootOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)
	op := args[0]
	binary := op == "meet" || op == "join" || op == "isa"
	switch {
	case binary && len(args) != 3:
		return NewExitError(ExitCommandError, fmt.Sprintf("%s takes two types", op))
	case !binary && op != "dual" && op != "show":
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown operation %q: want meet, join, isa, dual or show", op))
	case !binary && len(args) != 2:
		return NewExitError(ExitCommandError, fmt.Sprintf("%s takes one type", op))
	}

	l := types.New()
	a, err := harness.ParseType(l, args[1])
	if err != nil {
		return WrapExitError(ExitCommandError, "bad type", err)
	}
	res := TypeOutput{Op: op, A: a.String()}
	if binary {
		b, err := harness.ParseType(l, args[2])
		if err != nil {
			return WrapExitError(ExitCommandError, "bad type", err)
		}
		res.B = b.String()
		switch op {
		case "meet":
			res.Result = l.Meet(a, b).String()
		case "join":
			res.Result = l.Join(a, b).String()
		case "isa":
			res.Result = fmt.Sprint(l.Isa(a, b))
		}
	} else if op == "dual" {
		res.Result = a.Dual().String()
	} else {
		res.Result = fmt.Sprintf("%s dual=%s high=%t constant=%t", a, a.Dual(), a.IsHigh(), a.IsConstant())
	}

	if out.Text() {
		fmt.Fprintln(cmd.OutOrStdout(), res.Result)
		return nil
	}
	return out.Success(res)
}
