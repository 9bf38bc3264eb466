package son

import (
	"time"

	"github.com/roach88/seanodes/internal/types"
)

// RunToFixpoint runs the pessimistic pass: every live node is pushed and
// peepholed until the worklist drains. Invariant violations come back as
// *InvariantError and an exhausted quota as *QuotaError.
func (g *Graph) RunToFixpoint() (err error) {
	defer guard(&err)
	defer g.endPass()
	g.pass = PassPessimistic
	start := time.Now()
	g.logger.Info("pessimistic pass starting", "live", len(g.Nodes()), "seed", g.seed, "policy", g.policy)

	g.pushLive()
	cnt, err := g.iterate()
	g.stats.Pessimistic += cnt
	if err != nil {
		return err
	}
	g.ranPessim = true
	g.logger.Info("pessimistic pass complete",
		"iterations", cnt,
		"live", len(g.Nodes()),
		"elapsed", time.Since(start))
	return nil
}

func (g *Graph) endPass() { g.pass = PassBuild }

func (g *Graph) pushLive() {
	for _, n := range g.nodes {
		if n != nil && !n.IsDead() {
			g.work.Push(n)
		}
	}
}

// iterate drains the worklist under the pessimistic rules. Each pop is
// peepholed; a replacement subsumes the popped node and revisits both
// neighborhoods, and unused leftovers are killed.
func (g *Graph) iterate() (int, error) {
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
		if x := n.peepholeOpt(); x != nil {
			if x.IsDead() {
				continue
			}
			if x.typ == nil {
				x.setType(x.compute())
			}
			if x != n || x.op != OpConstant {
				g.pushAll(n.outs)
				g.push(x)
				if x != n {
					g.pushAll(n.ins)
					n.Subsume(x)
				}
			}
			n.moveDepsToWorklist()
			if g.validation == ValidateEveryStep {
				g.mustStable()
			}
		}
		if !n.IsDead() && n.IsUnused() && n.op != OpStop {
			n.Kill()
		}
	}
	if g.validation != ValidateNever {
		g.mustStable()
	}
	return cnt, nil
}

func (g *Graph) mustStable() {
	g.stats.Validations++
	if bad := g.ProgressOnList(); bad != nil {
		fail(ErrCodeNotStable, bad, "off the worklist but not at its fixpoint (type %s)", bad.typ)
	}
}

// ProgressOnList returns the first reachable node that is not on the
// worklist yet would still change if peepholed, or nil when every pending
// change is accounted for. Distant dependencies are not recorded while it
// runs. A stable graph is left untouched.
func (g *Graph) ProgressOnList() *Node {
	g.midAssert = true
	defer func() { g.midAssert = false }()
	var bad *Node
	g.walk(func(n *Node) {
		if bad != nil || g.work.On(n) {
			return
		}
		if n.makesProgress() {
			bad = n
		}
	})
	return bad
}

func (n *Node) makesProgress() bool {
	g := n.g
	t := n.compute()
	if t != n.typ {
		return true
	}
	if n.op != OpConstant && t.Kind() != types.KindTuple && t.IsHighOrConst() {
		return true
	}
	if n.op.hashed() && n.gvn == unlinked && g.gvn.find(n) != nil {
		return true
	}
	return n.idealize() != nil
}
