package harness

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Scenario describes one graph to build, the passes to run over it, and the
// assertions the optimized graph must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Seed is the worklist seed. Zero selects the default seed.
	Seed uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	// Mode is "pessimistic" (RunToFixpoint only) or "optimistic"
	// (RunToFixpoint then RunOptimistic). Empty means pessimistic.
	Mode string `yaml:"mode,omitempty" json:"mode,omitempty"`

	// WholeWorld marks named functions other than main as private to the
	// optimistic pass.
	WholeWorld bool `yaml:"whole_world,omitempty" json:"whole_world,omitempty"`

	// Raw builds the graph without construction peepholes, so every
	// rewrite is left to the fixpoint.
	Raw bool `yaml:"raw,omitempty" json:"raw,omitempty"`

	// MaxIterations overrides the per-pass pop quota.
	MaxIterations int `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`

	// Nodes are the construction steps, applied in order.
	Nodes []NodeStep `yaml:"nodes" json:"nodes"`

	// Assertions validate the optimized graph.
	Assertions []Assertion `yaml:"assertions" json:"assertions"`
}

// NodeStep is one construction call. ID labels the result so later steps
// can reference it in In.
//
// Some steps define extra labels:
//   - fun: ID.mem and ID.argN for its memory and argument Parms
//   - if: ID.true and ID.false for its projections
//   - call: ID.ctrl, ID.mem and ID.ret for its continuation
//
// The label "_" stands for a missing input, e.g. an open loop back edge.
type NodeStep struct {
	ID    string   `yaml:"id" json:"id"`
	Op    string   `yaml:"op" json:"op"`
	In    []string `yaml:"in,omitempty" json:"in,omitempty"`
	Type  string   `yaml:"type,omitempty" json:"type,omitempty"`
	Name  string   `yaml:"name,omitempty" json:"name,omitempty"`
	Args  []string `yaml:"args,omitempty" json:"args,omitempty"`
	Index int      `yaml:"index,omitempty" json:"index,omitempty"`
}

// Assertion validates one property of the optimized graph.
type Assertion struct {
	// Type selects the check; see the Assert* constants.
	Type string `yaml:"type" json:"type"`

	// Node is a step label (dead, live, node_type).
	Node string `yaml:"node,omitempty" json:"node,omitempty"`

	// Fun is a fun step label (return_type, return_op, unknown_callers).
	Fun string `yaml:"fun,omitempty" json:"fun,omitempty"`

	// Op is an op name (count, return_op).
	Op string `yaml:"op,omitempty" json:"op,omitempty"`

	// Want is the expected type, written as a type expression.
	Want string `yaml:"want,omitempty" json:"want,omitempty"`

	// Count is the expected number of live nodes (count) or edges (call_edges).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Value is the expected flag (unknown_callers).
	Value bool `yaml:"value,omitempty" json:"value,omitempty"`

	// Seeds is how many seeds a confluent check compares, starting at 1.
	Seeds int `yaml:"seeds,omitempty" json:"seeds,omitempty"`

	// Edges lists expected call edges as "caller->callee" labels.
	Edges []string `yaml:"edges,omitempty" json:"edges,omitempty"`
}

// Assertion type constants.
const (
	AssertReturnType     = "return_type"
	AssertReturnOp       = "return_op"
	AssertCount          = "count"
	AssertDead           = "dead"
	AssertLive           = "live"
	AssertNodeType       = "node_type"
	AssertCallEdges      = "call_edges"
	AssertUnknownCallers = "unknown_callers"
	AssertConfluent      = "confluent"
)

// Pass modes.
const (
	ModePessimistic = "pessimistic"
	ModeOptimistic  = "optimistic"
)

var validLabel = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Message: fmt.Sprintf("failed to read scenario file: %v", err)}
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalid, Message: err.Error()}
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and labels are
// consistent. Op names are checked when the graph is built.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Mode {
	case "", ModePessimistic, ModeOptimistic:
	default:
		return fmt.Errorf("unknown mode %q (want pessimistic or optimistic)", s.Mode)
	}
	if s.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be non-negative")
	}
	if len(s.Nodes) == 0 {
		return fmt.Errorf("nodes list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Nodes))
	for i := range s.Nodes {
		step := &s.Nodes[i]
		step.ID = norm.NFC.String(step.ID)
		if step.ID == "" {
			return fmt.Errorf("nodes[%d]: id is required", i)
		}
		if !validLabel.MatchString(step.ID) {
			return fmt.Errorf("nodes[%d]: id %q must match %s", i, step.ID, validLabel)
		}
		if step.Op == "" {
			return fmt.Errorf("nodes[%d]: op is required", i)
		}
		if seen[step.ID] {
			return fmt.Errorf("nodes[%d]: duplicate id %q", i, step.ID)
		}
		seen[step.ID] = true
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertReturnType:
		if a.Fun == "" || a.Want == "" {
			return fmt.Errorf("assertions[%d]: fun and want are required for return_type", index)
		}
	case AssertReturnOp:
		if a.Fun == "" || a.Op == "" {
			return fmt.Errorf("assertions[%d]: fun and op are required for return_op", index)
		}
	case AssertCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertDead, AssertLive:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for %s", index, a.Type)
		}
	case AssertNodeType:
		if a.Node == "" || a.Want == "" {
			return fmt.Errorf("assertions[%d]: node and want are required for node_type", index)
		}
	case AssertCallEdges:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertUnknownCallers:
		if a.Fun == "" {
			return fmt.Errorf("assertions[%d]: fun is required for unknown_callers", index)
		}
	case AssertConfluent:
		if a.Seeds <= 0 {
			return fmt.Errorf("assertions[%d]: seeds must be positive for confluent", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
