package harness

import (
	"slices"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/seanodes/internal/canon"
)

// snapshotOps are the ops whose live counts a snapshot records. Structural
// nodes (roots, constants, projections, parameters) are left out so the
// snapshot reads as the shape of the computation.
var snapshotOps = []string{
	"Add", "Sub", "Mul", "Div", "Minus", "And", "Or", "Xor", "Shl", "Shr", "Sar",
	"EQ", "LT", "LE", "EQF", "LTF", "LEF", "Not",
	"AddF", "SubF", "MulF", "DivF", "MinusF", "ToFloat",
	"Cast", "If", "Region", "Loop", "Phi",
}

// Snapshot is the canonical summary of an optimized scenario.
type Snapshot struct {
	ScenarioName string
	Mode         string
	Returns      map[string]string // fun label -> return type
	Counts       map[string]int    // op -> live count, nonzero only
	CallGraph    []string
}

// NewSnapshot summarizes a result.
func NewSnapshot(scenario *Scenario, r *Result) *Snapshot {
	mode := scenario.Mode
	if mode == "" {
		mode = ModePessimistic
	}
	s := &Snapshot{
		ScenarioName: scenario.Name,
		Mode:         mode,
		Returns:      make(map[string]string, len(r.Returns)),
		Counts:       make(map[string]int),
		CallGraph:    r.CallGraph,
	}
	for fun, info := range r.Returns {
		s.Returns[fun] = info.Type
	}
	for _, n := range r.Nodes {
		s.Counts[n.Op]++
	}
	for op := range s.Counts {
		if !slices.Contains(snapshotOps, op) {
			delete(s.Counts, op)
		}
	}
	return s
}

// toCanonical converts the snapshot for canonical JSON serialization.
func (s *Snapshot) toCanonical() canon.Object {
	returns := make(canon.Object, len(s.Returns))
	for fun, t := range s.Returns {
		returns[fun] = canon.String(t)
	}
	counts := make(canon.Object, len(s.Counts))
	for op, c := range s.Counts {
		counts[op] = canon.Int(c)
	}
	calls := s.CallGraph
	if calls == nil {
		calls = []string{}
	}
	return canon.Object{
		"scenario_name": canon.String(s.ScenarioName),
		"mode":          canon.String(s.Mode),
		"returns":       returns,
		"counts":        counts,
		"call_graph":    canon.Strings(calls),
	}
}

// MarshalCanonical encodes the snapshot as canonical JSON.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	return canon.MarshalCanonical(s.toCanonical())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario, result)
}

// AssertGolden compares an existing result's snapshot against its golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenario, result).MarshalCanonical()
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
