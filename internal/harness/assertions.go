package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/seanodes/internal/son"
)

// AssertionError is returned when an assertion fails.
// It includes the final graph to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Dump     string // Final graph for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Dump != "" {
		fmt.Fprintf(&buf, "\nFinal graph:\n%s", e.Dump)
	}
	return buf.String()
}

// evaluateAssertions checks every assertion and returns the failure messages.
func (h *Harness) evaluateAssertions(ex *execution, r *Result) []string {
	var errs []string
	for i, a := range ex.scenario.Assertions {
		if err := h.evaluate(ex, r, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func (h *Harness) evaluate(ex *execution, r *Result, a Assertion) error {
	switch a.Type {
	case AssertReturnType, AssertReturnOp:
		return assertReturn(ex, r, a)
	case AssertCount:
		return assertCount(ex, r, a)
	case AssertDead, AssertLive:
		return assertLiveness(ex, r, a)
	case AssertNodeType:
		return assertNodeType(ex, r, a)
	case AssertCallEdges:
		return assertCallEdges(r, a)
	case AssertUnknownCallers:
		return assertUnknownCallers(ex, r, a)
	case AssertConfluent:
		return h.assertConfluent(ex, r, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func failed(r *Result, a Assertion, expected, actual string) error {
	return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Dump: r.Dump}
}

// assertReturn checks a function's final return expression.
func assertReturn(ex *execution, r *Result, a Assertion) error {
	info, ok := r.Returns[a.Fun]
	if !ok {
		return failed(r, a, fmt.Sprintf("%s returns", a.Fun), "no live return")
	}
	if a.Type == AssertReturnOp {
		if info.Op != a.Op {
			return failed(r, a, fmt.Sprintf("%s returns a %s", a.Fun, a.Op), fmt.Sprintf("returns a %s", info.Op))
		}
		return nil
	}
	want, err := ParseType(ex.g.L, a.Want)
	if err != nil {
		return err
	}
	if info.Type != want.String() {
		return failed(r, a, fmt.Sprintf("%s returns %s", a.Fun, want), fmt.Sprintf("returns %s", info.Type))
	}
	return nil
}

// assertCount checks the number of live nodes of an op.
func assertCount(ex *execution, r *Result, a Assertion) error {
	op, ok := son.ParseOp(a.Op)
	if !ok {
		return fmt.Errorf("unknown op %q", a.Op)
	}
	if got := ex.g.Count(op); got != a.Count {
		return failed(r, a, fmt.Sprintf("%d live %s", a.Count, a.Op), fmt.Sprintf("%d live", got))
	}
	return nil
}

// assertLiveness checks whether the node a step produced survived.
func assertLiveness(ex *execution, r *Result, a Assertion) error {
	n := ex.b.node(a.Node)
	if n == nil {
		return fmt.Errorf("unknown label %q", a.Node)
	}
	wantDead := a.Type == AssertDead
	if n.IsDead() != wantDead {
		state := "live"
		if n.IsDead() {
			state = "dead"
		}
		return failed(r, a, fmt.Sprintf("%s is %s", a.Node, a.Type), fmt.Sprintf("%s is %s", n, state))
	}
	return nil
}

// assertNodeType checks the final type of a surviving step node.
func assertNodeType(ex *execution, r *Result, a Assertion) error {
	n := ex.b.node(a.Node)
	if n == nil {
		return fmt.Errorf("unknown label %q", a.Node)
	}
	if n.IsDead() {
		return failed(r, a, fmt.Sprintf("%s is live", a.Node), "dead")
	}
	want, err := ParseType(ex.g.L, a.Want)
	if err != nil {
		return err
	}
	if n.Type() != want {
		return failed(r, a, fmt.Sprintf("%s : %s", a.Node, want), fmt.Sprintf("%s : %s", n, n.Type()))
	}
	return nil
}

// assertCallEdges checks the linked call graph. With Edges set the edge
// lists must match exactly; otherwise only the count is checked.
func assertCallEdges(r *Result, a Assertion) error {
	if len(a.Edges) > 0 {
		want := slices.Clone(a.Edges)
		slices.Sort(want)
		got := slices.Clone(r.CallGraph)
		slices.Sort(got)
		if !slices.Equal(want, got) {
			return failed(r, a, fmt.Sprintf("edges %v", want), fmt.Sprintf("edges %v", got))
		}
		return nil
	}
	if len(r.CallGraph) != a.Count {
		return failed(r, a, fmt.Sprintf("%d call edges", a.Count), fmt.Sprintf("%d: %v", len(r.CallGraph), r.CallGraph))
	}
	return nil
}

// assertUnknownCallers checks whether a function may still be called from
// outside the graph.
func assertUnknownCallers(ex *execution, r *Result, a Assertion) error {
	n := ex.b.node(a.Fun)
	if n == nil || n.Op() != son.OpFun {
		return fmt.Errorf("%q is not a fun", a.Fun)
	}
	if n.IsDead() {
		return failed(r, a, fmt.Sprintf("%s is live", a.Fun), "dead")
	}
	if got := n.UnknownCallers(); got != a.Value {
		return failed(r, a, fmt.Sprintf("%s unknown callers = %t", a.Fun, a.Value), fmt.Sprintf("%t", got))
	}
	return nil
}

// assertConfluent reruns the scenario at seeds 1..Seeds and checks that
// every run reaches this run's census.
func (h *Harness) assertConfluent(ex *execution, r *Result, a Assertion) error {
	seeds := make([]uint64, a.Seeds)
	for i := range seeds {
		seeds[i] = uint64(i + 1)
	}
	report, err := h.Confluence(ex.scenario, seeds)
	if err != nil {
		return err
	}
	for _, sf := range report.Runs {
		if sf.Fingerprint != r.Fingerprint {
			return failed(r, a,
				fmt.Sprintf("every seed reaches %s", r.Fingerprint[:12]),
				fmt.Sprintf("seed %d reaches %s", sf.Seed, sf.Fingerprint[:12]))
		}
	}
	return nil
}
