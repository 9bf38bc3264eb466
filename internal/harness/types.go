package harness

import (
	"github.com/roach88/seanodes/internal/son"
)

// ReturnInfo describes what a function returns after optimization.
type ReturnInfo struct {
	Op   string `json:"op"`
	Type string `json:"type"`
}

// NodeInfo is one live node of the optimized graph.
type NodeInfo struct {
	ID   int    `json:"id"`
	Op   string `json:"op"`
	Type string `json:"type"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Seed is the worklist seed the passes ran with.
	Seed uint64 `json:"seed"`

	// Pass indicates overall success: every pass finished and every
	// assertion held.
	Pass bool `json:"pass"`

	// Errors contains pass failures and assertion messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Census is the sorted op:type summary of the final graph.
	Census []string `json:"census"`

	// Fingerprint is the census hash; equal graphs share it.
	Fingerprint string `json:"fingerprint"`

	// Returns maps function labels to their final return expression.
	Returns map[string]ReturnInfo `json:"returns"`

	// CallGraph lists linked call edges as "caller->callee" labels.
	CallGraph []string `json:"call_graph"`

	// Recursive lists the recursive function groups, by label.
	Recursive [][]string `json:"recursive,omitempty"`

	// Nodes lists every live node in id order.
	Nodes []NodeInfo `json:"nodes"`

	// Stats are the optimizer's activity counters.
	Stats son.Stats `json:"stats"`

	// Dump is the printed final graph.
	Dump string `json:"-"`
}

// NewResult creates a new passing result.
func NewResult(name string, seed uint64) *Result {
	return &Result{
		Name:    name,
		Seed:    seed,
		Pass:    true,
		Errors:  []string{},
		Returns: make(map[string]ReturnInfo),
	}
}

// AddError adds an error message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
