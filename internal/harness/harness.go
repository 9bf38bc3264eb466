package harness

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/seanodes/internal/canon"
	"github.com/roach88/seanodes/internal/son"
	"github.com/roach88/seanodes/internal/worklist"
)

// Harness runs scenarios. Every run builds a fresh graph, so one Harness
// can run many scenarios and seeds.
type Harness struct {
	logger     *slog.Logger
	validation son.Validation
	maxIter    int
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to every graph.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithValidation sets the stability check mode of every graph.
func WithValidation(v son.Validation) Option {
	return func(h *Harness) { h.validation = v }
}

// WithMaxIterations sets the default pop quota. A scenario's own
// max_iterations takes precedence.
func WithMaxIterations(n int) Option {
	return func(h *Harness) { h.maxIter = n }
}

// New creates a harness. Logs are discarded unless WithLogger is given.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		validation: son.ValidateAtEnd,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(scenario)
}

// Run executes a scenario at its own seed.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	return h.RunSeed(scenario, scenarioSeed(scenario))
}

// RunSeed executes a scenario at the given seed.
//
// Execution flow:
// 1. Build the graph from the scenario steps
// 2. Run the pessimistic pass, then the optimistic pass in optimistic mode
// 3. Summarize the final graph
// 4. Evaluate assertions
//
// A scenario that cannot be built returns an error. A pass failure is
// recorded in the result and skips the assertions.
func (h *Harness) RunSeed(scenario *Scenario, seed uint64) (*Result, error) {
	ex, err := h.execute(scenario, seed)
	if err != nil {
		return nil, err
	}
	result := ex.summarize()
	if ex.passErr != nil {
		result.AddError(ex.passErr.Error())
		return result, nil
	}

	for _, msg := range h.evaluateAssertions(ex, result) {
		result.AddError(msg)
	}
	h.logger.Info("scenario complete",
		"scenario", scenario.Name,
		"seed", seed,
		"pass", result.Pass,
		"live", result.Stats.LiveAtFinish,
	)
	return result, nil
}

// Check builds a scenario's graph without running the passes, reporting
// the first step that breaks a graph invariant.
func (h *Harness) Check(scenario *Scenario) error {
	opts := []son.Option{son.WithLogger(h.logger), son.WithValidation(son.ValidateNever)}
	if scenario.Raw {
		opts = append(opts, son.WithoutConstructionPeepholes())
	}
	if _, err := buildGraph(son.New(opts...), scenario.Nodes); err != nil {
		return fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	return nil
}

// execution is one built and optimized graph.
type execution struct {
	scenario *Scenario
	seed     uint64
	g        *son.Graph
	b        *builder
	passErr  error
}

func scenarioSeed(s *Scenario) uint64 {
	if s.Seed == 0 {
		return worklist.DefaultSeed
	}
	return s.Seed
}

func (h *Harness) execute(scenario *Scenario, seed uint64) (*execution, error) {
	opts := []son.Option{
		son.WithSeed(seed),
		son.WithLogger(h.logger),
		son.WithValidation(h.validation),
	}
	switch {
	case scenario.MaxIterations > 0:
		opts = append(opts, son.WithMaxIterations(scenario.MaxIterations))
	case h.maxIter > 0:
		opts = append(opts, son.WithMaxIterations(h.maxIter))
	}
	if scenario.Raw {
		opts = append(opts, son.WithoutConstructionPeepholes())
	}
	g := son.New(opts...)

	b, err := buildGraph(g, scenario.Nodes)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	ex := &execution{scenario: scenario, seed: seed, g: g, b: b}
	if err := g.RunToFixpoint(); err != nil {
		ex.passErr = err
		return ex, nil
	}
	if scenario.Mode == ModeOptimistic {
		if err := g.RunOptimistic(scenario.WholeWorld); err != nil {
			ex.passErr = err
		}
	}
	return ex, nil
}

// summarize extracts the result fields from the final graph.
func (ex *execution) summarize() *Result {
	g := ex.g
	r := NewResult(ex.scenario.Name, ex.seed)
	r.Census = g.Census()
	r.Fingerprint = canon.CensusFingerprint(r.Census)
	r.Stats = g.Stats()

	for _, fun := range g.Funs() {
		ret := fun.Ret()
		if ret == nil || ret.IsDead() || ret.NIns() < 3 || ret.In(2) == nil {
			continue
		}
		expr := ret.In(2)
		r.Returns[ex.b.funLabel(fun.Fidx())] = ReturnInfo{Op: expr.Op().String(), Type: expr.Type().String()}
	}

	edges := g.CallGraph()
	r.CallGraph = make([]string, 0, len(edges))
	for _, e := range edges {
		r.CallGraph = append(r.CallGraph, ex.b.funLabel(e.Caller)+"->"+ex.b.funLabel(e.Callee))
	}
	for _, group := range son.RecursiveGroups(edges) {
		names := make([]string, len(group))
		for i, fidx := range group {
			names[i] = ex.b.funLabel(fidx)
		}
		r.Recursive = append(r.Recursive, names)
	}

	for _, n := range g.Nodes() {
		r.Nodes = append(r.Nodes, NodeInfo{ID: n.ID(), Op: n.Op().String(), Type: n.Type().String()})
	}
	var dump strings.Builder
	_ = g.Dump(&dump)
	r.Dump = dump.String()
	return r
}
