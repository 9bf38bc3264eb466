package son

import (
	"fmt"

	"github.com/roach88/seanodes/internal/types"
)

// Builder calls create nodes, type them and run construction-time
// peepholes. The returned node is the survivor, which may be an existing
// node or a constant rather than a fresh one.

// Con returns the canonical constant node of t.
func (g *Graph) Con(t *types.Type) *Node { return g.newCon(t).Peephole() }

// Int returns the integer constant v.
func (g *Graph) Int(v int64) *Node { return g.Con(g.L.Int(v)) }

// Flt returns the float constant v.
func (g *Graph) Flt(v float64) *Node { return g.Con(g.L.Flt(v)) }

// Binary builds a two-operand arithmetic, compare or float node.
func (g *Graph) Binary(op Op, a, b *Node) *Node {
	if !op.isBinary() {
		fail(ErrCodeBadGraph, nil, "%s is not a binary op", op)
	}
	return g.binary(op, a, b).Peephole()
}

// Unary builds Minus, Not, MinusF or ToFloat.
func (g *Graph) Unary(op Op, x *Node) *Node {
	switch op {
	case OpMinus, OpNot, OpMinusF, OpToFloat:
	default:
		fail(ErrCodeBadGraph, nil, "%s is not a unary op", op)
	}
	return g.newNode(op, nil, x).Peephole()
}

func (g *Graph) Add(a, b *Node) *Node { return g.Binary(OpAdd, a, b) }
func (g *Graph) Sub(a, b *Node) *Node { return g.Binary(OpSub, a, b) }
func (g *Graph) Mul(a, b *Node) *Node { return g.Binary(OpMul, a, b) }
func (g *Graph) Div(a, b *Node) *Node { return g.Binary(OpDiv, a, b) }
func (g *Graph) EQ(a, b *Node) *Node  { return g.Binary(OpEQ, a, b) }
func (g *Graph) LT(a, b *Node) *Node  { return g.Binary(OpLT, a, b) }
func (g *Graph) Not(x *Node) *Node    { return g.Unary(OpNot, x) }

// Cast narrows x to t under control ctrl, which may be nil.
func (g *Graph) Cast(ctrl, x *Node, t *types.Type) *Node {
	c := g.newNode(OpCast, ctrl, x)
	c.con = t
	return c.Peephole()
}

// If splits ctrl on pred and returns the If with its true and false
// projections.
func (g *Graph) If(ctrl, pred *Node) (iff, t, f *Node) {
	iff = g.newNode(OpIf, ctrl, pred).Peephole()
	iff.Keep()
	t = g.cproj(iff, 0, "True")
	f = g.cproj(iff, 1, "False")
	iff.Unkeep()
	return iff, t, f
}

func (g *Graph) cproj(n *Node, idx int, name string) *Node {
	p := g.newNode(OpCProj, n)
	p.idx, p.name = idx, name
	return p.Peephole()
}

// CProj projects control slot idx out of a multi-tail node.
func (g *Graph) CProj(n *Node, idx int) *Node { return g.cproj(n, idx, "") }

// Proj projects value slot idx out of a multi-tail node.
func (g *Graph) Proj(n *Node, idx int, name string) *Node {
	p := g.newNode(OpProj, n)
	p.idx, p.name = idx, name
	return p.Peephole()
}

// Region merges control paths. It is typed but not simplified, so Phis can
// be hung off it before the fixpoint folds it.
func (g *Graph) Region(ctrls ...*Node) *Node {
	r := g.newNode(OpRegion, append([]*Node{nil}, ctrls...)...)
	r.setType(r.compute())
	g.push(r)
	return r
}

// Loop opens a loop head over entry. The back edge is wired by Close.
func (g *Graph) Loop(entry *Node) *Node {
	l := g.newNode(OpLoop, nil, entry, nil)
	l.setType(l.compute())
	g.push(l)
	return l
}

// Phi merges one value per path of region. A loop Phi takes nil for its
// back edge value until Close wires it.
func (g *Graph) Phi(region *Node, name string, declared *types.Type, vals ...*Node) *Node {
	if !region.op.isRegion() || len(vals) != len(region.ins)-1 {
		fail(ErrCodeBadGraph, region, "phi %q with %d values over %d paths", name, len(vals), len(region.ins)-1)
	}
	// The caller still holds region, so a Phi that folds away must not take it down.
	region.Keep()
	phi := g.newPhi(name, declared, append([]*Node{region}, vals...)).Peephole()
	region.Unkeep()
	return phi
}

// Close wires the missing last input of an in-progress Loop or Phi.
func (g *Graph) Close(n *Node, last *Node) *Node {
	if !n.inProgress() {
		fail(ErrCodeBadGraph, n, "close of a finished node")
	}
	n.SetDef(len(n.ins)-1, last)
	n.setType(n.compute())
	g.push(n)
	return n
}

// NewFunction declares a function taking args and returning ret. The Fun
// starts with unknown callers and carries the RPC, memory and argument
// Parms. Its body is built from the Fun as control and closed by Return.
func (g *Graph) NewFunction(name string, ret *types.Type, args ...*types.Type) *Node {
	if g.nextFidx >= 64 {
		fail(ErrCodeBadGraph, nil, "too many functions")
	}
	fidx := g.nextFidx
	g.nextFidx++
	fun := g.newNode(OpFun, nil, g.start)
	fun.con = g.L.FunConst(fidx, g.L.Tuple(args...), ret)
	fun.name = name
	fun.setType(fun.compute())
	g.funs[fidx] = fun
	g.push(fun)

	g.newParm(fun, ParmRPC, "$rpc", g.L.RPCBot)
	g.newParm(fun, ParmMem, "$mem", g.L.MemBot)
	for i, a := range args {
		g.newParm(fun, ParmArg0+i, fmt.Sprintf("arg%d", i), a)
	}
	return fun
}

func (g *Graph) newParm(fun *Node, idx int, name string, t *types.Type) *Node {
	def := g.Con(t)
	p := g.newNode(OpParm, fun, def)
	p.idx, p.name, p.con = idx, name, t
	p.setType(p.compute())
	g.push(p)
	return p
}

// FunPtr returns the constant function pointer of fun.
func (g *Graph) FunPtr(fun *Node) *Node { return g.Con(fun.con) }

// Return closes fun with its exit control, memory and result, and wires the
// Return to Stop.
func (g *Graph) Return(fun, ctrl, mem, expr *Node) *Node {
	if fun.op != OpFun || fun.ret != nil {
		fail(ErrCodeBadGraph, fun, "return of a non-function or twice")
	}
	rpc := fun.Parm(ParmRPC)
	r := g.newNode(OpReturn, ctrl, mem, expr, rpc)
	r.fun = fun
	fun.ret = r
	r.setType(r.compute())
	g.stop.AddDef(r)
	g.push(r)
	g.push(g.stop)
	return r
}

// CallSite is a Call together with its CallEnd and the projections of the
// continuation.
type CallSite struct {
	Call *Node
	End  *Node
	Ctrl *Node
	Mem  *Node
	Ret  *Node
}

// Call calls through fptr with args under ctrl and mem.
func (g *Graph) Call(ctrl, mem, fptr *Node, args ...*Node) CallSite {
	ins := append([]*Node{ctrl, mem}, args...)
	call := g.newNode(OpCall, append(ins, fptr)...)
	call.setType(call.compute())
	g.push(call)

	cend := g.newNode(OpCallEnd, call)
	cend.rpc = g.L.RPC(cend.id)
	cend.setType(cend.compute())
	g.push(cend)

	cend.Keep()
	site := CallSite{Call: call, End: cend}
	site.Ctrl = g.newNode(OpCProj, cend)
	site.Mem = g.newNode(OpProj, cend)
	site.Ret = g.newNode(OpProj, cend)
	site.Ctrl.idx, site.Mem.idx, site.Ret.idx = 0, 1, 2
	site.Mem.name, site.Ret.name = "$mem", "$ret"
	site.Ctrl = site.Ctrl.Peephole()
	site.Mem = site.Mem.Peephole()
	site.Ret = site.Ret.Peephole()
	cend.Unkeep()
	return site
}

// Build runs fn, which makes construction calls on g, and returns the
// invariant error any of them raised.
func (g *Graph) Build(fn func()) (err error) {
	defer guard(&err)
	fn()
	return nil
}
