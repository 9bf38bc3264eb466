package son

import (
	"slices"

	"github.com/roach88/seanodes/internal/types"
)

// inProgress reports whether a merge is still being built: a Region or Loop
// whose last path is not wired yet, a Phi missing its last value, or a
// function (and its Parms) that may still gain unknown callers.
func (n *Node) inProgress() bool {
	switch n.op {
	case OpRegion, OpLoop, OpPhi:
		return len(n.ins) > 1 && n.ins[len(n.ins)-1] == nil
	case OpFun:
		return len(n.ins) > 1 && n.ins[1] == n.g.start
	case OpParm:
		return n.ins[0] != nil && n.ins[0].op == OpFun && n.ins[0].inProgress()
	}
	return false
}

// idom returns the immediate dominator of a control node, or nil at a root.
func (n *Node) idom() *Node {
	switch n.op {
	case OpStart, OpStop, OpFun:
		return nil
	case OpLoop:
		return n.ins[1]
	case OpRegion:
		var lca *Node
		for _, c := range n.ins[1:] {
			if c == nil {
				continue
			}
			if lca == nil {
				lca = c
				continue
			}
			if lca = commonDom(lca, c); lca == nil {
				return nil
			}
		}
		return lca
	}
	if len(n.ins) == 0 || n.ins[0] == nil || !n.ins[0].IsCFG() {
		return nil
	}
	return n.ins[0]
}

// idepth is the depth in the dominator tree. It is cached until the next
// control edge change.
func (n *Node) idepthOf() int {
	g := n.g
	if n.idepthEpoch == g.cfgEpoch+1 {
		return n.idepth
	}
	d := 0
	switch n.op {
	case OpStart, OpStop:
	case OpFun:
		d = 1
	case OpRegion:
		for _, c := range n.ins[1:] {
			if c != nil {
				d = max(d, c.idepthOf())
			}
		}
		d++
	default:
		if dom := n.idom(); dom != nil {
			d = dom.idepthOf() + 1
		}
	}
	n.idepth, n.idepthEpoch = d, g.cfgEpoch+1
	return d
}

func commonDom(a, b *Node) *Node {
	for a != b {
		if a == nil || b == nil {
			return nil
		}
		cmp := a.idepthOf() - b.idepthOf()
		if cmp >= 0 {
			a = a.idom()
		}
		if cmp <= 0 {
			b = b.idom()
		}
	}
	return a
}

// ifIdeal decides the test when a dominating If on the same predicate
// already picked a side.
func (n *Node) ifIdeal() *Node {
	pred := n.ins[1]
	if pred.typ.IsHighOrConst() {
		return nil
	}
	prior := n
	for dom := n.idom(); dom != nil; prior, dom = dom, dom.idom() {
		n.addDep(dom)
		if dom.op == OpIf && n.addDep(dom.ins[1]) == pred && prior.op == OpCProj {
			v := n.g.L.One
			if prior.idx == 1 {
				v = n.g.L.Zero
			}
			n.SetDef(1, n.g.newCon(v).Peephole())
			return n
		}
	}
	return nil
}

// cprojIdeal collapses the live side of a decided If onto the If's control.
func (n *Node) cprojIdeal() *Node {
	iff := n.ins[0]
	if iff.op != OpIf {
		return nil
	}
	t := iff.typ
	if t.IsTupleTop() || t.IsTupleBottom() || t.Len() != 2 {
		return nil
	}
	if t.Elem(1-n.idx) == n.g.L.XCtrl {
		return iff.ins[0]
	}
	return nil
}

func (n *Node) hasPhi() bool {
	for _, u := range n.outs {
		if u != nil && u.op.isPhi() {
			return true
		}
	}
	return false
}

func (n *Node) findDeadInput() int {
	for i := 1; i < len(n.ins); i++ {
		if c := n.ins[i]; c != nil && n.g.isDeadCtrl(ctrlOf(c)) {
			return i
		}
	}
	return 0
}

// delPath removes path i from a merge and every Phi hanging off it.
func (n *Node) delPath(i int) {
	for _, phi := range slices.Clone(n.outs) {
		if phi != nil && phi.op.isPhi() && !phi.IsDead() && len(phi.ins) > i {
			phi.DelDef(i)
		}
	}
	n.DelDef(i)
	n.g.pushAll(n.outs)
}

func (n *Node) regionIdeal() *Node {
	if n.inProgress() {
		return nil
	}
	// The entry of a Loop stays put; a dead entry types the Loop XCtrl instead.
	if path := n.findDeadInput(); path != 0 && !(n.op == OpLoop && path == 1) {
		n.delPath(path)
		if len(n.ins) == 2 && !n.hasPhi() {
			return n.ins[1]
		}
		return n
	}
	if len(n.ins) == 2 && !n.hasPhi() {
		return n.ins[1]
	}
	if len(n.ins) == 3 && !n.hasPhi() {
		p1, p2 := n.ins[1], n.ins[2]
		if p1.op == OpCProj && p2.op == OpCProj && n.addDep(p1.ins[0]) == p2.ins[0] && p1.ins[0].op == OpIf {
			return p1.ins[0].ins[0]
		}
	}
	return nil
}

func (n *Node) loopIdeal() *Node { return n.regionIdeal() }

func (n *Node) phiIdeal() *Node {
	g := n.g
	r := n.ins[0]
	if !r.op.isRegion() {
		if g.isDeadCtrl(r.typ) {
			return g.newCon(g.L.Top)
		}
		return n.ins[1]
	}
	if r.inProgress() || n.inProgress() {
		return nil
	}
	if live := n.singleUniqueInput(); live != nil {
		if g.L.Isa(live.typ, n.con) {
			return live
		}
		c := g.newNode(OpCast, nil, live)
		c.con = n.con
		return c
	}

	if op := n.ins[1]; op.op.isBinary() && op.ins[0] == nil && n.sameOp() {
		lhs := make([]*Node, len(n.ins))
		rhs := make([]*Node, len(n.ins))
		lhs[0], rhs[0] = r, r
		for i := 1; i < len(n.ins); i++ {
			lhs[i], rhs[i] = n.ins[i].ins[1], n.ins[i].ins[2]
		}
		pl := g.newPhi(n.name, n.con, lhs).Peephole()
		pr := g.newPhi(n.name, n.con, rhs).Peephole()
		return g.binary(op.op, pl, pr)
	}

	if len(n.ins) == 3 {
		if c := n.ins[1]; c.op == OpCast && n.addDep(c.ins[1]) == n.ins[2] {
			return n.ins[2]
		}
		if c := n.ins[2]; c.op == OpCast && n.addDep(c.ins[1]) == n.ins[1] {
			return n.ins[1]
		}
	}
	return nil
}

// singleUniqueInput returns the one value flowing in on every live path,
// ignoring self references, or nil.
func (n *Node) singleUniqueInput() *Node {
	r := n.ins[0]
	if r.op == OpLoop && n.g.isDeadCtrl(ctrlOf(r.ins[1])) {
		return nil
	}
	var live *Node
	for i := 1; i < len(n.ins) && i < len(r.ins); i++ {
		if n.g.isDeadCtrl(ctrlOf(n.addDep(r.ins[i]))) || n.ins[i] == n {
			continue
		}
		if live != nil && live != n.ins[i] {
			return nil
		}
		live = n.ins[i]
	}
	return live
}

func (n *Node) sameOp() bool {
	op := n.ins[1].op
	for _, in := range n.ins[2:] {
		if in == nil || in.op != op || in.ins[0] != nil || in == n {
			return false
		}
	}
	return n.ins[1] != n
}

func (g *Graph) newPhi(name string, declared *types.Type, ins []*Node) *Node {
	phi := g.newNode(OpPhi, ins...)
	phi.con = declared
	phi.name = name
	return phi
}
