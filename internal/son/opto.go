package son

import (
	"time"

	"github.com/roach88/seanodes/internal/types"
)

// RunOptimistic runs the interprocedural optimistic pass: sparse conditional
// constant propagation over the whole graph with the call graph discovered
// along the way. With wholeWorld set, named functions other than main lose
// their unknown callers; anonymous functions always do.
//
// RunToFixpoint must have completed first. The pass ends with one more
// pessimistic iterate that folds everything the analysis proved.
func (g *Graph) RunOptimistic(wholeWorld bool) (err error) {
	if !g.ranPessim {
		return ErrPessimisticFirst
	}
	if err := g.RunToFixpoint(); err != nil {
		return err
	}
	defer guard(&err)
	defer g.endPass()
	start := time.Now()

	g.pass = PassOptimistic
	pess := g.resetToTop()
	for _, fun := range g.Funs() {
		if !fun.IsPublic(wholeWorld) {
			g.unlinkStart(fun)
		}
	}
	cnt, err := g.sccp(pess)
	g.stats.Optimistic += cnt
	if err != nil {
		return err
	}

	g.pass = PassPessimistic
	g.pushLive()
	post, err := g.iterate()
	g.stats.Pessimistic += post
	if err != nil {
		return err
	}
	g.logger.Info("optimistic pass complete",
		"iterations", cnt,
		"cleanup_iterations", post,
		"live", len(g.Nodes()),
		"whole_world", wholeWorld,
		"elapsed", time.Since(start))
	return nil
}

// resetToTop records every reachable node's pessimistic type, lowers the
// whole graph to Top, queues it, and drops every call link so the analysis
// rediscovers the call graph. The returned slice is indexed by node id.
func (g *Graph) resetToTop() []*types.Type {
	pess := make([]*types.Type, len(g.nodes))
	var calls []*Node
	g.walk(func(n *Node) {
		if n.id < len(pess) {
			pess[n.id] = n.typ
		}
		n.typ = g.L.Top
		g.push(n)
		if n.op == OpCall {
			calls = append(calls, n)
		}
	})
	for _, c := range calls {
		g.unlinkAll(c)
	}
	return pess
}

// sccp drains the worklist with compute only. Types start at Top and fall;
// each must stay at or above its pessimistic type. Calls are linked the
// first time they are reachable with a known function pointer.
func (g *Graph) sccp(pess []*types.Type) (int, error) {
	cnt := 0
	for {
		n, ok := g.work.Pop()
		if !ok {
			break
		}
		if n.IsDead() {
			continue
		}
		if cnt >= g.maxIter {
			return cnt, &QuotaError{Pass: string(g.pass), Iterations: cnt, Max: g.maxIter}
		}
		cnt++
		old := n.typ
		t := n.compute()
		if t == old {
			continue
		}
		if n.id < len(pess) && pess[n.id] != nil && !g.L.Isa(t, pess[n.id]) {
			fail(ErrCodeSandwich, n, "optimistic type %s is below pessimistic %s", t, pess[n.id])
		}
		n.setType(t)

		if n.op == OpCall && old.IsHigh() && !t.IsHigh() {
			g.linkCG(n)
		}
		if !t.IsHigh() {
			for _, u := range n.outs {
				if u != nil && u.op == OpCall && u.fptr() == n {
					g.linkCG(u)
				}
			}
		}
	}
	return cnt, nil
}

// linkCG links a reachable call to every function its pointer may name.
func (g *Graph) linkCG(call *Node) {
	if call.typ.IsHigh() {
		return
	}
	fp := call.fptr().typ
	if fp.IsHigh() {
		return
	}
	fidxs := uint64(types.AllFidxs)
	if fp.Kind() == types.KindFunPtr {
		fidxs = fp.Fidxs()
	}
	for _, fun := range g.Funs() {
		if fidxs&types.FidxBit(fun.Fidx()) == 0 {
			continue
		}
		if fun.ret == nil || fun.ret.IsDead() || fun.con.NArgs() != call.NArgs() || isLinked(call, fun) {
			continue
		}
		g.link(call, fun)
	}
}
