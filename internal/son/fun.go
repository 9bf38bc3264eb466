package son

import (
	"math/bits"
	"slices"

	"github.com/roach88/seanodes/internal/types"
)

// Parm slots. Declared arguments follow at ParmArg0.
const (
	ParmRPC  = 0
	ParmMem  = 1
	ParmArg0 = 2
)

// Fidx returns the function index of a Fun.
func (n *Node) Fidx() int { return n.con.Fidx() }

// Ret returns the Return of a Fun, or nil before it is built.
func (n *Node) Ret() *Node { return n.ret }

// Fun returns the function a Return belongs to.
func (n *Node) Fun() *Node { return n.fun }

// Parms returns the live Parms of a Fun, ordered by slot.
func (n *Node) Parms() []*Node {
	var ps []*Node
	for _, u := range n.outs {
		if u != nil && u.op == OpParm && !u.IsDead() {
			ps = append(ps, u)
		}
	}
	slices.SortFunc(ps, func(a, b *Node) int { return a.idx - b.idx })
	return ps
}

// Parm returns the live Parm of a Fun at slot idx, or nil.
func (n *Node) Parm(idx int) *Node {
	for _, u := range n.outs {
		if u != nil && u.op == OpParm && u.idx == idx {
			return u
		}
	}
	return nil
}

// UnknownCallers reports whether a Fun can still be called from outside the
// graph through its Start path.
func (n *Node) UnknownCallers() bool { return n.op == OpFun && n.inProgress() }

// IsPublic reports whether a Fun keeps its unknown callers under the given
// world assumption. main is always public; other named functions are public
// unless the whole world is known; anonymous functions never are.
func (n *Node) IsPublic(wholeWorld bool) bool {
	switch n.name {
	case "main":
		return true
	case "":
		return false
	}
	return !wholeWorld
}

// Callers returns the Calls currently linked to a Fun.
func (n *Node) Callers() []*Node {
	var cs []*Node
	for _, c := range n.ins[1:] {
		if c != nil && c.op == OpCall {
			cs = append(cs, c)
		}
	}
	return cs
}

func (n *Node) fptr() *Node { return n.ins[len(n.ins)-1] }

// NArgs returns the number of declared arguments passed by a Call.
func (n *Node) NArgs() int { return len(n.ins) - 3 }

// CallEnd returns the CallEnd of a Call, or nil.
func (n *Node) CallEnd() *Node {
	for _, u := range n.outs {
		if u != nil && u.op == OpCallEnd {
			return u
		}
	}
	return nil
}

func isLinked(call, fun *Node) bool { return slices.Contains(fun.ins[1:], call) }

// link wires call into fun: a new Fun path, one value per Parm and the
// Return into the CallEnd.
func (g *Graph) link(call, fun *Node) {
	cend := call.CallEnd()
	if cend == nil || fun.ret == nil {
		fail(ErrCodeBadGraph, call, "link without a CallEnd or Return")
	}
	fun.AddDef(call)
	for _, parm := range fun.Parms() {
		var arg *Node
		if parm.idx == ParmRPC {
			arg = g.linkCon(cend.rpc)
		} else {
			arg = call.ins[parm.idx]
		}
		parm.AddDef(arg)
		g.push(parm)
	}
	cend.AddDef(fun.ret)
	g.push(fun)
	g.push(cend)
	g.stats.Links++
	g.logger.Debug("linked call", "call", call.id, "fun", fun.name, "fidx", fun.Fidx(), "pass", g.pass)
}

// linkCon makes a constant for a freshly linked path. During the optimistic
// pass constants start at Top like everything else.
func (g *Graph) linkCon(t *types.Type) *Node {
	if g.pass != PassOptimistic {
		return g.newCon(t).Peephole()
	}
	c := g.newCon(t)
	c.typ = g.L.Top
	g.push(c)
	return c
}

// unlink removes the path of call from fun and its Parms, and fun's Return
// from the CallEnd.
func (g *Graph) unlink(call, fun *Node) {
	i := slices.Index(fun.ins[1:], call) + 1
	if i == 0 {
		return
	}
	fun.ret.Keep()
	fun.Keep()
	fun.delPath(i)
	if cend := call.CallEnd(); cend != nil {
		if j := slices.Index(cend.ins[1:], fun.ret); j >= 0 {
			cend.DelDef(j + 1)
		}
		g.push(cend)
	}
	fun.Unkeep()
	fun.ret.Unkeep()
	g.push(fun)
}

// unlinkAll drops every link of call.
func (g *Graph) unlinkAll(call *Node) {
	cend := call.CallEnd()
	if cend == nil {
		return
	}
	for len(cend.ins) > 1 {
		ret := cend.ins[len(cend.ins)-1]
		if ret == nil || ret.op != OpReturn || ret.fun == nil || ret.fun.IsDead() {
			cend.PopUntil(len(cend.ins) - 1)
			continue
		}
		if !isLinked(call, ret.fun) {
			cend.PopUntil(len(cend.ins) - 1)
			continue
		}
		g.unlink(call, ret.fun)
	}
}

// unlinkStart removes the unknown-caller path of fun and its Return's edge
// to Stop. The Return survives unused until a Call links it.
func (g *Graph) unlinkStart(fun *Node) {
	if !fun.inProgress() {
		return
	}
	fun.Keep()
	fun.delPath(1)
	fun.Unkeep()
	if r := fun.ret; r != nil {
		if i := slices.Index(g.stop.ins, r); i >= 0 {
			r.Keep()
			g.stop.DelDef(i)
			r.Unkeep()
		}
	}
	g.push(fun)
	g.logger.Debug("unlinked start", "fun", fun.name, "fidx", fun.Fidx())
}

func (n *Node) funIdeal() *Node {
	for i := 1; i < len(n.ins); i++ {
		c := n.ins[i]
		if c == nil || c == n.g.start {
			continue
		}
		if n.g.isDeadCtrl(ctrlOf(c)) {
			n.delPath(i)
			return n
		}
	}
	return nil
}

func (n *Node) parmIdeal() *Node {
	if r := n.ins[0]; !r.op.isRegion() {
		if n.g.isDeadCtrl(r.typ) {
			return n.g.newCon(n.g.L.Top)
		}
		return n.ins[1]
	}
	return nil
}

// callIdeal links a live call to every known callee with a matching arity.
func (n *Node) callIdeal() *Node {
	g := n.g
	if g.pass == PassOptimistic || ctrlOf(n.ins[0]) != g.L.Ctrl || n.CallEnd() == nil {
		return nil
	}
	fp := n.fptr().typ
	if fp.Kind() != types.KindFunPtr || fp.IsHigh() || fp.Fidxs() == types.AllFidxs || fp.NArgs() != n.NArgs() {
		return nil
	}
	progress := false
	for f := fp.Fidxs(); f != 0; f = types.NextFidx(f) {
		fun := g.funs[bits.TrailingZeros64(f)]
		if fun == nil || fun.IsDead() || fun.ret == nil || fun.ret.IsDead() || isLinked(n, fun) {
			continue
		}
		g.link(n, fun)
		progress = true
	}
	if progress {
		return n
	}
	return nil
}

func (n *Node) returnIdeal() *Node {
	g := n.g
	if !g.isDeadCtrl(ctrlOf(n.ins[0])) {
		return nil
	}
	if n.ins[1].op == OpConstant && n.ins[1].con == g.L.Top && n.ins[2] == n.ins[1] {
		return nil
	}
	top := g.newCon(g.L.Top).Peephole()
	n.SetDef(1, top)
	n.SetDef(2, top)
	return n
}

func (n *Node) stopIdeal() *Node {
	for i, r := range n.ins {
		if r == nil || r.op != OpReturn {
			continue
		}
		if r.fun == nil || r.fun.IsDead() {
			n.DelDef(i)
			return n
		}
		n.addDep(r.fun)
	}
	return nil
}
