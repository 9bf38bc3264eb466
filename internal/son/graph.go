package son

import (
	"log/slog"
	"slices"

	"github.com/roach88/seanodes/internal/types"
	"github.com/roach88/seanodes/internal/worklist"
)

// Graph is one compilation context: the node arena, the value table, the
// worklist, the function linker and the type lattice.
//
// A Graph is single-threaded. All mutation happens through the node edge
// primitives, the builder calls and the passes.
//
// INVARIANTS:
//   - Start and Stop are pinned and never die
//   - every linked node's hash matches its current inputs
//   - a node's type only moves in the direction of the running pass
type Graph struct {
	// L is the type lattice shared by every node of the graph.
	L *types.Lattice

	nodes []*Node // arena indexed by id; slot 0 unused
	gvn   *valueTable
	work  *worklist.List[*Node]
	start *Node
	stop  *Node

	funs     map[int]*Node // fidx -> Fun
	nextFidx int

	pass      Pass
	midAssert bool // suppress dep registration during the stability walk
	noPeeps   bool
	cfgEpoch  int  // bumped on every control edge change; invalidates idepth
	ranPessim bool // RunToFixpoint completed at least once

	seed       uint64
	policy     worklist.Policy
	logger     *slog.Logger
	maxIter    int
	validation Validation
	observer   TypeObserver

	stats Stats
}

// New creates a graph holding only the Start and Stop roots.
//
// Options can be passed to configure seeding, logging, quotas and
// validation (e.g., WithSeed, WithValidation).
func New(opts ...Option) *Graph {
	g := &Graph{
		seed:    worklist.DefaultSeed,
		policy:  worklist.Random,
		logger:  slog.Default(),
		maxIter: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.L == nil {
		g.L = types.New()
	}
	g.gvn = newValueTable()
	g.work = worklist.New[*Node](g.policy, g.seed)
	g.init()
	return g
}

func (g *Graph) init() {
	g.nodes = append(g.nodes[:0], nil)
	g.funs = make(map[int]*Node)
	g.nextFidx = 1
	g.pass = PassBuild
	g.ranPessim = false

	g.start = g.newNode(OpStart)
	g.start.setType(g.L.StartTuple)
	g.start.Keep()
	g.stop = g.newNode(OpStop)
	g.stop.setType(g.L.Bottom)
	g.stop.Keep()
}

// Reset restores the graph to a fresh Start/Stop pair: the arena, value
// table, worklist, linker and id counter are cleared and the lattice drops
// every type interned since its baseline. Nodes obtained before Reset must
// not be used afterwards.
func (g *Graph) Reset() {
	clear(g.nodes)
	g.gvn.clear()
	g.work.Clear()
	g.L.Reset()
	g.stats = Stats{}
	g.cfgEpoch = 0
	g.midAssert = false
	g.init()
}

// Start returns the root that produces the initial control, memory and argument.
func (g *Graph) Start() *Node { return g.start }

// Stop returns the terminal root; every live function return feeds it.
func (g *Graph) Stop() *Node { return g.stop }

// Stats returns a snapshot of the activity counters.
func (g *Graph) Stats() Stats {
	s := g.stats
	s.WorkPushes = g.work.Pushes()
	s.LiveAtFinish = len(g.Nodes())
	return s
}

// Seed returns the worklist seed.
func (g *Graph) Seed() uint64 { return g.seed }

// Policy returns the worklist pop policy.
func (g *Graph) Policy() worklist.Policy { return g.policy }

// Logger returns the configured logger.
func (g *Graph) Logger() *slog.Logger { return g.logger }

// Node returns the node with the given id, dead or alive, or nil.
func (g *Graph) Node(id int) *Node {
	if id <= 0 || id >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// MaxID returns one past the highest node id allocated.
func (g *Graph) MaxID() int { return len(g.nodes) }

// Nodes returns every live node in id order.
func (g *Graph) Nodes() []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n != nil && !n.IsDead() {
			out = append(out, n)
		}
	}
	return out
}

// Funs returns every registered live function in fidx order.
func (g *Graph) Funs() []*Node {
	fidxs := make([]int, 0, len(g.funs))
	for f := range g.funs {
		fidxs = append(fidxs, f)
	}
	slices.Sort(fidxs)
	var out []*Node
	for _, f := range fidxs {
		if fun := g.funs[f]; !fun.IsDead() {
			out = append(out, fun)
		}
	}
	return out
}

// FunByIndex returns the live function with the given fidx, or nil.
func (g *Graph) FunByIndex(fidx int) *Node {
	fun := g.funs[fidx]
	if fun == nil || fun.IsDead() {
		return nil
	}
	return fun
}

// WorkLen returns the number of pending worklist entries.
func (g *Graph) WorkLen() int { return g.work.Len() }

// OnWorklist reports whether n is pending.
func (g *Graph) OnWorklist(n *Node) bool { return g.work.On(n) }

func (g *Graph) newNode(op Op, ins ...*Node) *Node {
	n := &Node{g: g, id: len(g.nodes), op: op, ins: slices.Clone(ins)}
	if n.ins == nil {
		n.ins = []*Node{}
	}
	for _, in := range ins {
		if in != nil {
			in.mustLive()
			in.addUse(n)
		}
	}
	g.nodes = append(g.nodes, n)
	g.stats.Created++
	return n
}

func (g *Graph) push(n *Node) {
	if n != nil && !n.IsDead() {
		g.work.Push(n)
	}
}

func (g *Graph) pushAll(ns []*Node) {
	for _, n := range ns {
		g.push(n)
	}
}

// walk visits every node reachable from Start through inputs and outputs,
// in depth-first preorder.
func (g *Graph) walk(fn func(*Node)) {
	seen := make([]bool, len(g.nodes))
	stack := []*Node{g.start, g.stop}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || n.IsDead() {
			continue
		}
		for n.id >= len(seen) {
			seen = append(seen, false)
		}
		if seen[n.id] {
			continue
		}
		seen[n.id] = true
		fn(n)
		for i := len(n.outs) - 1; i >= 0; i-- {
			stack = append(stack, n.outs[i])
		}
		for i := len(n.ins) - 1; i >= 0; i-- {
			stack = append(stack, n.ins[i])
		}
	}
}
