package son

import (
	"github.com/roach88/seanodes/internal/types"
)

// setType installs t and revisits the users and distant dependents when it
// changed. Outside the optimistic pass a type may only move up the lattice:
// the new type must be at least as precise as the old one. The optimistic
// pass starts from Top and only moves down. Returns the old type.
func (n *Node) setType(t *types.Type) *types.Type {
	old := n.typ
	if old == t {
		return old
	}
	g := n.g
	if old != nil && !g.monotone(old, t) {
		fail(ErrCodeMonotonicity, n, "type fell from %s to %s in the %s pass", old, t, g.pass)
	}
	n.typ = t
	g.stats.TypeChanges++
	if g.observer != nil {
		g.observer(g.pass, n, old, t)
	}
	g.pushAll(n.outs)
	n.moveDepsToWorklist()
	return old
}

func (g *Graph) monotone(old, t *types.Type) bool {
	if g.pass == PassOptimistic {
		return g.L.Isa(old, t)
	}
	return g.L.Isa(t, old)
}

// Peephole is the construction-time entry point: it rewrites n until no
// further local progress is possible and returns the surviving node, which
// may be n itself. An unused n that is replaced is killed.
func (n *Node) Peephole() *Node {
	g := n.g
	if g.noPeeps && g.pass == PassBuild {
		if n.typ == nil {
			n.setType(n.compute())
		}
		g.push(n)
		return n
	}
	x := n.peepholeOpt()
	if x == nil {
		return n
	}
	// Only recurse on nodes at least as new as n so the recursion terminates.
	if x.id >= n.id {
		x = x.Peephole()
	}
	return n.deadCodeElim(x)
}

// peepholeOpt runs one rewrite attempt and returns nil for no progress.
//
// The steps, in order:
//  1. recompute the type from the inputs' cached types
//  2. replace a high or constant result with a canonical Constant
//  3. value-number against the table; a hit joins both types and wins
//  4. op-specific idealize
//  5. report progress if only the type changed
func (n *Node) peepholeOpt() *Node {
	g := n.g
	g.stats.Peepholes++
	old := n.setType(n.compute())
	t := n.typ

	if n.op != OpConstant && t.Kind() != types.KindTuple && t.IsHighOrConst() {
		return g.newCon(t).Peephole()
	}

	if n.op.hashed() && n.gvn == unlinked {
		if c := g.gvn.lookup(n); c != nil {
			c.setType(g.L.Join(c.typ, t))
			g.stats.GVNHits++
			return n.deadCodeElim(c)
		}
	}

	if x := n.idealize(); x != nil {
		return n.narrow(x)
	}
	if old == n.typ {
		return nil
	}
	return n
}

// narrow guards a value replacement whose type is not at least as precise as
// the node it replaces, so the users' types cannot fall.
func (n *Node) narrow(x *Node) *Node {
	g := n.g
	if x == n || n.IsCFG() || n.typ.Kind() == types.KindTuple {
		return x
	}
	if x.typ == nil {
		x.setType(x.compute())
	}
	if g.L.Isa(x.typ, n.typ) {
		return x
	}
	c := g.newNode(OpCast, nil, x)
	c.con = n.typ
	return c
}

// deadCodeElim kills n when it is unused and m replaces it.
func (n *Node) deadCodeElim(m *Node) *Node {
	if m != n && n.IsUnused() && !n.IsDead() {
		m.Keep()
		n.Kill()
		m.Unkeep()
	}
	return m
}

func (g *Graph) newCon(t *types.Type) *Node {
	n := g.newNode(OpConstant, g.start)
	n.con = t
	return n
}
