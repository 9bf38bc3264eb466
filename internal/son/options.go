package son

import (
	"fmt"
	"log/slog"

	"github.com/roach88/seanodes/internal/types"
	"github.com/roach88/seanodes/internal/worklist"
)

// DefaultMaxIterations bounds the number of worklist pops per pass.
// This prevents a non-converging rewrite from spinning forever.
const DefaultMaxIterations = 1_000_000

// Validation selects how often the whole-graph stability check runs.
type Validation int

const (
	// ValidateNever skips the check.
	ValidateNever Validation = iota
	// ValidateAtEnd checks once after each pass reaches its fixpoint.
	ValidateAtEnd
	// ValidateEveryStep checks after every productive worklist step.
	// Quadratic; meant for tests.
	ValidateEveryStep
)

func (v Validation) String() string {
	switch v {
	case ValidateNever:
		return "never"
	case ValidateAtEnd:
		return "end"
	case ValidateEveryStep:
		return "step"
	}
	return fmt.Sprintf("Validation(%d)", int(v))
}

// ParseValidation parses a mode as printed by String.
func ParseValidation(s string) (Validation, error) {
	switch s {
	case "never", "":
		return ValidateNever, nil
	case "end":
		return ValidateAtEnd, nil
	case "step":
		return ValidateEveryStep, nil
	}
	return ValidateNever, fmt.Errorf("unknown validation mode %q (want never, end or step)", s)
}

// Pass names the phase a type change happened in.
type Pass string

const (
	PassBuild       Pass = "build"
	PassPessimistic Pass = "pessimistic"
	PassOptimistic  Pass = "optimistic"
)

// TypeObserver is told about every type assignment. old is nil for a
// node's first type.
type TypeObserver func(pass Pass, n *Node, old, new *types.Type)

// Option configures a Graph.
type Option func(*Graph)

// WithSeed sets the worklist seed. Default: worklist.DefaultSeed.
func WithSeed(seed uint64) Option {
	return func(g *Graph) { g.seed = seed }
}

// WithPopPolicy sets the worklist pop order. Default: worklist.Random.
func WithPopPolicy(p worklist.Policy) Option {
	return func(g *Graph) { g.policy = p }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

// WithMaxIterations sets the per-pass pop quota.
//
// Default: 1,000,000 (DefaultMaxIterations)
// Use WithMaxIterations(10) for testing quota enforcement.
func WithMaxIterations(n int) Option {
	return func(g *Graph) { g.maxIter = n }
}

// WithValidation sets the stability check mode. Default: ValidateNever.
func WithValidation(v Validation) Option {
	return func(g *Graph) { g.validation = v }
}

// WithLattice shares an existing lattice instead of creating one.
func WithLattice(l *types.Lattice) Option {
	return func(g *Graph) { g.L = l }
}

// WithTypeObserver installs a hook called on every type assignment.
func WithTypeObserver(obs TypeObserver) Option {
	return func(g *Graph) { g.observer = obs }
}

// WithoutConstructionPeepholes makes builder calls only compute types.
// The graph is then optimized entirely by the fixpoint driver.
func WithoutConstructionPeepholes() Option {
	return func(g *Graph) { g.noPeeps = true }
}

// Stats counts graph activity since the last Reset.
type Stats struct {
	Created      int   `json:"created"`
	Peepholes    int   `json:"peepholes"`
	Mutations    int   `json:"mutations"`
	Kills        int   `json:"kills"`
	GVNHits      int   `json:"gvn_hits"`
	Links        int   `json:"links"`
	Pessimistic  int   `json:"pessimistic_iterations"`
	Optimistic   int   `json:"optimistic_iterations"`
	WorkPushes   int64 `json:"work_pushes"`
	Validations  int   `json:"validations"`
	TypeChanges  int   `json:"type_changes"`
	LiveAtFinish int   `json:"live"`
}
