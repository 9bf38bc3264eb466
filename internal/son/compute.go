package son

import (
	"math"
	"math/bits"

	"github.com/roach88/seanodes/internal/types"
)

// compute derives n's type from the cached types of its inputs. It never
// recomputes an input, and it is monotone: lower inputs give a lower result.
func (n *Node) compute() *types.Type {
	L := n.g.L
	switch n.op {
	case OpStart:
		return L.StartTuple
	case OpStop:
		return L.Bottom
	case OpConstant:
		return n.con
	case OpCast:
		return L.Join(n.ins[1].typ, n.con)
	case OpProj, OpCProj:
		return n.projCompute()
	case OpIf:
		return n.ifCompute()
	case OpRegion, OpFun:
		return n.regionCompute()
	case OpLoop:
		if n.inProgress() {
			return L.Ctrl
		}
		return ctrlOf(n.ins[1])
	case OpReturn:
		return n.returnCompute()
	case OpPhi, OpParm:
		return n.phiCompute()
	case OpCall:
		return ctrlOf(n.ins[0])
	case OpCallEnd:
		return n.callEndCompute()
	case OpMinus:
		return n.minusCompute()
	case OpNot:
		return n.notCompute()
	case OpMinusF:
		return n.minusFCompute()
	case OpToFloat:
		return n.toFloatCompute()
	}
	switch {
	case n.op.isIntBinary():
		return n.intCompute()
	case n.op.isCompare():
		return n.compareCompute()
	case n.op.isFloatBinary():
		return n.floatCompute()
	}
	fail(ErrCodeBadGraph, n, "no compute rule")
	return nil
}

// ctrlOf is the control type a CFG input contributes. Start produces a tuple
// but always offers live control.
func ctrlOf(c *Node) *types.Type {
	if c.op == OpStart {
		return c.g.L.Ctrl
	}
	return c.typ
}

// isDeadCtrl reports whether a control type carries no live path.
func (g *Graph) isDeadCtrl(t *types.Type) bool { return t == g.L.XCtrl || t == g.L.Top }

func (n *Node) projCompute() *types.Type {
	L := n.g.L
	t := n.ins[0].typ
	switch {
	case t.Kind() == types.KindTuple && !t.IsTupleTop() && !t.IsTupleBottom() && n.idx < t.Len():
		return t.Elem(n.idx)
	case t == L.Top || t.IsTupleTop():
		return L.Top
	}
	return L.Bottom
}

func (n *Node) ifCompute() *types.Type {
	L := n.g.L
	if c := ctrlOf(n.ins[0]); c != L.Ctrl && c != L.Bottom {
		return L.IfNeither
	}
	t := n.ins[1].typ
	switch {
	case t.IsHigh():
		return L.IfNeither
	case t.IsConstant():
		if isZero(L, t) {
			return L.IfFalse
		}
		return L.IfTrue
	case !L.Isa(L.MakeZero(t), t):
		return L.IfTrue
	}
	return L.IfBoth
}

func isZero(L *types.Lattice, t *types.Type) bool {
	switch t.Kind() {
	case types.KindFunPtr:
		return t.Fidxs() == 0
	}
	return t == L.Zero || t == L.FZero || t == L.Null
}

func (n *Node) regionCompute() *types.Type {
	L := n.g.L
	if n.op == OpRegion && n.inProgress() {
		return L.Ctrl
	}
	t := L.XCtrl
	for _, c := range n.ins[1:] {
		if c != nil {
			t = L.Meet(t, ctrlOf(c))
		}
	}
	return t
}

func (n *Node) returnCompute() *types.Type {
	L := n.g.L
	if n.fun == nil || n.fun.IsDead() {
		// Top of every live return, so an unreachable function's return
		// never falls when its Fun dies.
		return L.Tuple(L.XCtrl, L.Top, L.Top)
	}
	return L.Tuple(ctrlOf(n.ins[0]), n.ins[1].typ, n.ins[2].typ)
}

func (n *Node) phiCompute() *types.Type {
	L := n.g.L
	r := n.ins[0]
	if !r.op.isRegion() {
		// The region folded away; the Phi is about to fold too.
		if n.g.isDeadCtrl(r.typ) {
			return L.Top
		}
		if n.typ != nil {
			return n.typ
		}
		return n.ins[1].typ
	}
	if r.inProgress() || n.inProgress() {
		if r.op == OpLoop || n.op == OpParm {
			return n.con
		}
		return L.Bottom
	}
	t := L.Top
	for i := 1; i < len(n.ins) && i < len(r.ins); i++ {
		if n.g.isDeadCtrl(ctrlOf(n.addDep(r.ins[i]))) {
			continue
		}
		if n.ins[i].typ == L.Bottom {
			return L.Bottom
		}
		t = L.Meet(t, n.ins[i].typ)
	}
	newt := L.Join(t, n.con)
	if r.op == OpLoop && newt.Kind() == types.KindInt && newt != n.typ && !newt.IsConstant() {
		if n.typ == nil || n.typ.Kind() != types.KindInt || newt.Widen() <= n.typ.Widen() {
			return L.WidenLoop(newt, n.con)
		}
	}
	return newt
}

func (n *Node) callEndCompute() *types.Type {
	L := n.g.L
	call := n.ins[0]
	if call.op != OpCall || call.typ.IsHigh() {
		return L.ReturnTuple.Dual()
	}
	fp := n.addDep(call.fptr()).typ
	ret := L.Bottom
	switch {
	case fp.Kind() == types.KindFunPtr:
		ret = fp.Ret()
		if fp.IsHigh() {
			ret = L.Top
		}
		if fp.IsConstant() && len(n.ins) == 2 {
			switch rt := n.ins[1].typ; {
			case rt.Kind() == types.KindTuple && !rt.IsTupleTop() && !rt.IsTupleBottom() && rt.Len() == 3:
				ret = L.Join(ret, rt.Elem(2))
			case rt.IsHigh():
				ret = L.Top
			}
		}
	case fp.IsHigh():
		ret = L.Top
	}
	return L.Tuple(call.typ, L.MemBot, ret)
}

func (n *Node) intCompute() *types.Type {
	L := n.g.L
	t1, t2 := n.ins[1].typ, n.ins[2].typ
	if t1.IsHigh() || t2.IsHigh() {
		return L.IntTop
	}
	if t1.Kind() != types.KindInt || t2.Kind() != types.KindInt {
		return L.IntBot
	}
	if t1.IsConstant() && t2.IsConstant() {
		return L.Int(intOp(n.op, t1.Value(), t2.Value()))
	}
	widen := max(t1.Widen(), t2.Widen())
	lo1, hi1, lo2, hi2 := t1.Min(), t1.Max(), t2.Min(), t2.Max()
	switch n.op {
	case OpAdd:
		lo, ok1 := addOK(lo1, lo2)
		hi, ok2 := addOK(hi1, hi2)
		if ok1 && ok2 {
			return L.IntRangeWiden(lo, hi, widen)
		}
	case OpSub:
		lo, ok1 := subOK(lo1, hi2)
		hi, ok2 := subOK(hi1, lo2)
		if ok1 && ok2 {
			return L.IntRangeWiden(lo, hi, widen)
		}
	case OpMul:
		ps := [4]int64{}
		ok := true
		for i, p := range [4][2]int64{{lo1, lo2}, {lo1, hi2}, {hi1, lo2}, {hi1, hi2}} {
			var pok bool
			ps[i], pok = mulOK(p[0], p[1])
			ok = ok && pok
		}
		if ok {
			return L.IntRangeWiden(min(ps[0], ps[1], ps[2], ps[3]), max(ps[0], ps[1], ps[2], ps[3]), widen)
		}
	case OpAnd:
		switch {
		case lo1 >= 0 && lo2 >= 0:
			return L.IntRangeWiden(0, min(hi1, hi2), widen)
		case lo1 >= 0:
			return L.IntRangeWiden(0, hi1, widen)
		case lo2 >= 0:
			return L.IntRangeWiden(0, hi2, widen)
		}
	case OpOr, OpXor:
		if lo1 >= 0 && lo2 >= 0 {
			return L.IntRangeWiden(0, int64(1)<<bits.Len64(uint64(max(hi1, hi2)))-1, widen)
		}
	case OpShl:
		if t2.IsConstant() {
			c := uint(t2.Value() & 63)
			if lo1<<c>>c == lo1 && hi1<<c>>c == hi1 {
				return L.IntRangeWiden(lo1<<c, hi1<<c, widen)
			}
		}
	case OpShr, OpSar:
		if t2.IsConstant() {
			c := uint(t2.Value() & 63)
			if n.op == OpSar || lo1 >= 0 {
				return L.IntRangeWiden(lo1>>c, hi1>>c, widen)
			}
		}
	}
	return L.IntBot
}

func intOp(op Op, x, y int64) int64 {
	switch op {
	case OpAdd:
		return x + y
	case OpSub:
		return x - y
	case OpMul:
		return x * y
	case OpDiv:
		if y == 0 {
			return 0
		}
		return x / y
	case OpAnd:
		return x & y
	case OpOr:
		return x | y
	case OpXor:
		return x ^ y
	case OpShl:
		return x << uint(y&63)
	case OpShr:
		return int64(uint64(x) >> uint(y&63))
	case OpSar:
		return x >> uint(y&63)
	}
	panic("son: not an integer op " + op.String())
}

func addOK(a, b int64) (int64, bool) {
	s := a + b
	return s, (a >= 0) != (b >= 0) || (s >= 0) == (a >= 0)
}

func subOK(a, b int64) (int64, bool) {
	d := a - b
	return d, (a >= 0) == (b >= 0) || (d >= 0) == (a >= 0)
}

func mulOK(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) || p/b != a {
		return 0, false
	}
	return p, true
}

func (n *Node) compareCompute() *types.Type {
	L := n.g.L
	t1, t2 := n.ins[1].typ, n.ins[2].typ
	if t1.IsHigh() || t2.IsHigh() {
		return L.Bool.Dual()
	}
	if t1.Kind() == types.KindInt && t2.Kind() == types.KindInt {
		lo1, hi1, lo2, hi2 := t1.Min(), t1.Max(), t2.Min(), t2.Max()
		switch n.op {
		case OpEQ:
			if t1.IsConstant() && t2.IsConstant() {
				return boolType(L, lo1 == lo2)
			}
			if hi1 < lo2 || hi2 < lo1 {
				return L.Zero
			}
		case OpLT:
			if hi1 < lo2 {
				return L.One
			}
			if lo1 >= hi2 {
				return L.Zero
			}
		case OpLE:
			if hi1 <= lo2 {
				return L.One
			}
			if lo1 > hi2 {
				return L.Zero
			}
		}
		return L.Bool
	}
	if t1.Kind() == types.KindFlt && t2.Kind() == types.KindFlt && t1.IsConstant() && t2.IsConstant() {
		x, y := t1.FltValue(), t2.FltValue()
		switch n.op {
		case OpEQF, OpEQ:
			return boolType(L, x == y)
		case OpLTF, OpLT:
			return boolType(L, x < y)
		case OpLEF, OpLE:
			return boolType(L, x <= y)
		}
	}
	return L.Bool
}

func boolType(L *types.Lattice, b bool) *types.Type {
	if b {
		return L.One
	}
	return L.Zero
}

func (n *Node) notCompute() *types.Type {
	L := n.g.L
	t := n.ins[1].typ
	switch {
	case t.IsHigh():
		return L.Bool.Dual()
	case t.Kind() == types.KindInt:
		if t.IsConstant() {
			return boolType(L, t.Value() == 0)
		}
		if t.Min() > 0 || t.Max() < 0 {
			return L.Zero
		}
	case t == L.Null:
		return L.One
	case (t.Kind() == types.KindMemPtr || t.Kind() == types.KindFunPtr) && t.Nil() == types.NilNotNil:
		return L.Zero
	}
	return L.Bool
}

func (n *Node) minusCompute() *types.Type {
	L := n.g.L
	t := n.ins[1].typ
	switch {
	case t.IsHigh():
		return L.IntTop
	case t.Kind() != types.KindInt:
		return L.IntBot
	case t.IsConstant():
		return L.Int(-t.Value())
	case t.Min() != math.MinInt64:
		return L.IntRangeWiden(-t.Max(), -t.Min(), t.Widen())
	}
	return L.IntBot
}

func (n *Node) floatCompute() *types.Type {
	L := n.g.L
	t1, t2 := n.ins[1].typ, n.ins[2].typ
	if t1.IsHigh() || t2.IsHigh() {
		return L.FltTop
	}
	if t1.Kind() != types.KindFlt || t2.Kind() != types.KindFlt {
		return L.F64
	}
	if t1.IsConstant() && t2.IsConstant() {
		x, y := t1.FltValue(), t2.FltValue()
		switch n.op {
		case OpAddF:
			return L.Flt(x + y)
		case OpSubF:
			return L.Flt(x - y)
		case OpMulF:
			return L.Flt(x * y)
		case OpDivF:
			return L.Flt(x / y)
		}
	}
	return L.F64
}

func (n *Node) minusFCompute() *types.Type {
	L := n.g.L
	t := n.ins[1].typ
	switch {
	case t.IsHigh():
		return L.FltTop
	case t.Kind() != types.KindFlt:
		return L.F64
	case t.IsConstant():
		return L.Flt(-t.FltValue())
	}
	return t
}

func (n *Node) toFloatCompute() *types.Type {
	L := n.g.L
	t := n.ins[1].typ
	switch {
	case t.IsHigh():
		return L.FltTop
	case t.Kind() == types.KindInt && t.IsConstant():
		return L.Flt(float64(t.Value()))
	}
	return L.F64
}
