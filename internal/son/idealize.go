package son

import (
	"math"
	"math/bits"

	"github.com/roach88/seanodes/internal/types"
)

// idealize applies the op-specific rewrites. It returns a replacement node,
// n itself when n was edited in place, or nil for no change.
func (n *Node) idealize() *Node {
	switch n.op {
	case OpCast:
		if n.g.L.Isa(n.ins[1].typ, n.con) {
			return n.ins[1]
		}
		return nil
	case OpCProj:
		return n.cprojIdeal()
	case OpIf:
		return n.ifIdeal()
	case OpRegion:
		return n.regionIdeal()
	case OpLoop:
		return n.loopIdeal()
	case OpPhi:
		return n.phiIdeal()
	case OpFun:
		return n.funIdeal()
	case OpParm:
		return n.parmIdeal()
	case OpCall:
		return n.callIdeal()
	case OpReturn:
		return n.returnIdeal()
	case OpStop:
		return n.stopIdeal()
	case OpAdd:
		return n.addIdeal()
	case OpSub:
		return n.subIdeal()
	case OpMul:
		return n.mulIdeal()
	case OpDiv:
		return n.divIdeal()
	case OpAnd, OpOr, OpXor:
		return n.logicIdeal()
	case OpShl, OpShr, OpSar:
		if n.ins[2].typ == n.g.L.Zero {
			return n.ins[1]
		}
		return nil
	case OpMinus:
		if n.ins[1].op == OpMinus {
			return n.ins[1].ins[1]
		}
		return nil
	case OpMulF, OpDivF:
		if n.ins[2].typ == n.g.L.FOne {
			return n.ins[1]
		}
	}
	switch {
	case n.op.isCompare():
		return n.compareIdeal()
	case n.op.commutative() && spline(n.ins[1], n.ins[2]):
		return n.swap12()
	}
	return nil
}

func (g *Graph) binary(op Op, a, b *Node) *Node { return g.newNode(op, nil, a, b) }

// swap12 exchanges the two operands in place.
func (n *Node) swap12() *Node {
	n.unlock()
	n.ins[1], n.ins[2] = n.ins[2], n.ins[1]
	n.touch()
	return n
}

// spline orders commutative operands: constants sink to the right, Phis of
// constants follow them, other Phis go left and the rest sort by descending id.
// It reports whether hi and lo should swap.
func spline(hi, lo *Node) bool {
	switch {
	case lo.typ.IsConstant():
		return false
	case hi.typ.IsConstant():
		return true
	case lo.op == OpPhi && lo.allCons(hi):
		return false
	case hi.op == OpPhi && hi.allCons(lo):
		return true
	case lo.op == OpPhi && hi.op != OpPhi:
		return true
	case hi.op == OpPhi && lo.op != OpPhi:
		return false
	}
	return lo.id > hi.id
}

func pcon(n, dep *Node) *Node {
	if n.op == OpPhi && n.allCons(dep) {
		return n
	}
	return nil
}

// phiCon pushes a constant operand up through a Phi of constants so the
// arithmetic folds on every path. With rotate, (x op phi) op con is
// handled too.
func (n *Node) phiCon(rotate bool) *Node {
	g := n.g
	lhs, rhs := n.ins[1], n.ins[2]
	if rhs.typ == g.L.IntTop {
		return nil
	}
	lphi := pcon(lhs, n)
	if rotate && lphi == nil && len(lhs.ins) > 2 {
		if lhs.op != n.op {
			return nil
		}
		lphi = pcon(lhs.ins[2], lhs)
	}
	if lphi == nil {
		return nil
	}
	if rhs.op != OpConstant && pcon(rhs, n) == nil {
		return nil
	}
	if rhs.op == OpPhi && lphi.ins[0] != rhs.ins[0] {
		return nil
	}
	ins := make([]*Node, len(lphi.ins))
	ins[0] = lphi.ins[0]
	for i := 1; i < len(ins); i++ {
		r := rhs
		if rhs.op == OpPhi {
			r = rhs.ins[i]
		}
		ins[i] = g.binary(n.op, lphi.ins[i], r).Peephole()
	}
	name := lphi.name
	if rhs.op == OpPhi {
		name += rhs.name
	}
	p := g.newPhi(name, g.L.IntBot, ins).Peephole()
	if lhs == lphi {
		return p
	}
	return g.binary(n.op, lhs.ins[1], p)
}

func (n *Node) addIdeal() *Node {
	g := n.g
	lhs, rhs := n.ins[1], n.ins[2]
	if rhs.typ == g.L.Zero {
		return lhs
	}
	if lhs == rhs {
		return g.binary(OpShl, lhs, g.newCon(g.L.One).Peephole())
	}
	if lhs.op != OpAdd && rhs.op == OpAdd {
		return n.swap12()
	}
	if rhs.op == OpMinus {
		return g.binary(OpSub, lhs, rhs.ins[1])
	}
	if rhs.op == OpAdd {
		return g.binary(OpAdd, g.binary(OpAdd, lhs, rhs.ins[1]).Peephole(), rhs.ins[2])
	}
	if lhs.op != OpAdd {
		if spline(lhs, rhs) {
			return n.swap12()
		}
		return n.phiCon(true)
	}
	// (x + c1) + c2 folds the constants together.
	if n.addDep(lhs.ins[2]).typ.IsConstant() && rhs.typ.IsConstant() {
		return g.binary(OpAdd, lhs.ins[1], g.binary(OpAdd, lhs.ins[2], rhs).Peephole())
	}
	if p := n.phiCon(true); p != nil {
		return p
	}
	if spline(lhs.ins[2], rhs) {
		return g.binary(OpAdd, g.binary(OpAdd, lhs.ins[1], rhs).Peephole(), lhs.ins[2])
	}
	return nil
}

func (n *Node) subIdeal() *Node {
	g := n.g
	lhs, rhs := n.ins[1], n.ins[2]
	switch {
	case lhs == rhs:
		return g.newCon(g.L.Zero)
	case rhs.typ == g.L.Zero:
		return lhs
	case rhs.op == OpConstant && rhs.typ.Kind() == types.KindInt && rhs.typ.Value() != math.MinInt64:
		return g.binary(OpAdd, lhs, g.newCon(g.L.Int(-rhs.typ.Value())).Peephole())
	}
	return nil
}

func (n *Node) mulIdeal() *Node {
	g := n.g
	lhs, rhs := n.ins[1], n.ins[2]
	t2 := rhs.typ
	if t2 == g.L.One {
		return lhs
	}
	if spline(lhs, rhs) {
		return n.swap12()
	}
	if t2.IsConstant() && t2.Kind() == types.KindInt {
		if v := t2.Value(); v > 0 && v&(v-1) == 0 {
			return g.binary(OpShl, lhs, g.newCon(g.L.Int(int64(bits.TrailingZeros64(uint64(v))))).Peephole())
		}
	}
	return n.phiCon(true)
}

func (n *Node) divIdeal() *Node {
	g := n.g
	switch n.ins[2].typ {
	case g.L.One:
		return n.ins[1]
	case g.L.Int(-1):
		return g.newNode(OpMinus, nil, n.ins[1])
	}
	return nil
}

func (n *Node) logicIdeal() *Node {
	g := n.g
	lhs, rhs := n.ins[1], n.ins[2]
	switch {
	case lhs == rhs && n.op == OpXor:
		return g.newCon(g.L.Zero)
	case lhs == rhs:
		return lhs
	case rhs.typ == g.L.Zero && n.op != OpAnd:
		return lhs
	case rhs.typ == g.L.Int(-1) && n.op == OpAnd:
		return lhs
	case spline(lhs, rhs):
		return n.swap12()
	}
	return n.phiCon(true)
}

func (n *Node) compareIdeal() *Node {
	g := n.g
	lhs, rhs := n.ins[1], n.ins[2]
	if lhs == rhs {
		switch n.op {
		case OpEQ, OpLE:
			return g.newCon(g.L.One)
		case OpLT:
			return g.newCon(g.L.Zero)
		}
	}
	if p := n.phiCon(false); p != nil {
		return p
	}
	if n.op != OpEQ {
		return nil
	}
	if rhs.op != OpConstant {
		if lhs.op == OpConstant || lhs.id > rhs.id {
			return g.binary(OpEQ, rhs, lhs)
		}
	}
	if rhs.typ == g.L.Zero || rhs.typ == g.L.Null {
		return g.newNode(OpNot, nil, lhs)
	}
	return nil
}
