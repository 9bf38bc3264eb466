package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Lattice owns the intern table for one compilation context.
//
// The exported fields are the builtin types; they are created by New,
// survive Reset, and are safe to compare by pointer.
type Lattice struct {
	table map[string]*Type
	all   []*Type
	base  int

	Top, Bottom, Ctrl, XCtrl *Type

	IntTop, IntBot                  *Type
	I1, I8, I16, I32                *Type
	Bool, U8, U16, U32              *Type
	Zero, One                       *Type
	FltTop, F32, F64, FZero, FOne   *Type
	TupleTop, TupleBot              *Type
	IfBoth, IfNeither               *Type
	IfTrue, IfFalse                 *Type
	StartTuple, ReturnTuple         *Type
	StructTop, StructBot            *Type
	PtrTop, PtrBot, NotNilPtr, Null *Type
	FunTop, FunBot                  *Type
	MemTop, MemBot                  *Type
	RPCTop, RPCBot                  *Type
}

// New builds a lattice holding only the builtin types and captures them as
// the Reset baseline.
func New() *Lattice {
	l := &Lattice{table: make(map[string]*Type, 256)}

	l.Bottom, l.Top = l.simplePair(KindBottom, KindTop)
	l.Ctrl, l.XCtrl = l.simplePair(KindCtrl, KindXCtrl)

	l.IntBot = l.intMake(math.MinInt64, math.MaxInt64, 3)
	l.IntTop = l.IntBot.dual
	l.I1 = l.intMake(-1, 0, 3)
	l.I8 = l.intMake(-128, 127, 3)
	l.I16 = l.intMake(-32768, 32767, 3)
	l.I32 = l.intMake(math.MinInt32, math.MaxInt32, 3)
	l.Bool = l.intMake(0, 1, 3)
	l.U8 = l.intMake(0, 255, 3)
	l.U16 = l.intMake(0, 65535, 3)
	l.U32 = l.intMake(0, math.MaxUint32, 3)
	l.Zero = l.Int(0)
	l.One = l.Int(1)

	l.F64 = l.fltMake(64, 0)
	l.FltTop = l.F64.dual
	l.F32 = l.fltMake(32, 0)
	l.FZero = l.Flt(0)
	l.FOne = l.Flt(1)

	l.TupleBot = l.intern(&Type{kind: KindTuple, end: tupleBottom})
	l.TupleTop = l.TupleBot.dual
	l.IfBoth = l.Tuple(l.Ctrl, l.Ctrl)
	l.IfNeither = l.Tuple(l.XCtrl, l.XCtrl)
	l.IfTrue = l.Tuple(l.Ctrl, l.XCtrl)
	l.IfFalse = l.Tuple(l.XCtrl, l.Ctrl)

	l.MemBot = l.Mem(AliasAll, l.Bottom)
	l.MemTop = l.MemBot.dual

	l.StartTuple = l.Tuple(l.Ctrl, l.MemBot, l.IntBot)
	l.ReturnTuple = l.Tuple(l.Ctrl, l.MemBot, l.Bottom)

	l.StructTop, l.StructBot = l.structSentinels()
	l.PtrBot = l.MemPtr(NilMaybe, l.StructBot)
	l.PtrTop = l.PtrBot.dual
	l.NotNilPtr = l.MemPtr(NilNotNil, l.StructBot)
	l.Null = l.MemPtr(NilMaybe, l.StructTop)

	l.FunBot = l.FunPtr(NilMaybe, l.TupleBot, l.Bottom, AllFidxs)
	l.FunTop = l.FunBot.dual

	l.RPCBot = l.intern(&Type{kind: KindRPC, cofin: true})
	l.RPCTop = l.RPCBot.dual

	l.base = len(l.all)
	return l
}

// Reset drops every type interned after New returned.
func (l *Lattice) Reset() {
	for _, t := range l.all[l.base:] {
		delete(l.table, t.key)
	}
	clear(l.all[l.base:])
	l.all = l.all[:l.base]
}

// Len returns the number of interned types, builtins included.
func (l *Lattice) Len() int { return len(l.all) }

// Baseline returns the number of builtin types.
func (l *Lattice) Baseline() int { return l.base }

// Builtins returns a copy of the builtin types in intern order.
func (l *Lattice) Builtins() []*Type {
	out := make([]*Type, l.base)
	copy(out, l.all[:l.base])
	return out
}

// Meet returns the greatest lower bound of a and b.
func (l *Lattice) Meet(a, b *Type) *Type {
	if a == b {
		return a
	}
	l.mustInterned(a)
	l.mustInterned(b)
	if a.kind == b.kind {
		return l.xmeet(a, b)
	}
	switch {
	case a.kind == KindTop:
		return b
	case b.kind == KindTop:
		return a
	case a.kind == KindBottom || b.kind == KindBottom:
		return l.Bottom
	case a.IsCtrl() && b.IsCtrl():
		return l.Ctrl
	}
	return l.Bottom
}

// Join returns the least upper bound of a and b.
func (l *Lattice) Join(a, b *Type) *Type {
	if a == b {
		return a
	}
	return l.Meet(a.dual, b.dual).dual
}

// Isa reports whether a is at or above b, i.e. Meet(a, b) == b.
func (l *Lattice) Isa(a, b *Type) bool {
	return l.Meet(a, b) == b
}

func (l *Lattice) xmeet(a, b *Type) *Type {
	switch a.kind {
	case KindInt:
		return l.intMake(min(a.min, b.min), max(a.max, b.max), max(a.widen, b.widen))
	case KindFlt:
		return l.fltMeet(a, b)
	case KindTuple:
		return l.tupleMeet(a, b)
	case KindStruct, KindMemPtr:
		return l.meetRecursive(a, b)
	case KindFunPtr:
		return l.FunPtr(max(a.nilc, b.nilc), l.Meet(a.sig, b.sig), l.Meet(a.ret, b.ret), a.fidxs|b.fidxs)
	case KindMem:
		return l.Mem(aliasMeet(a.alias, b.alias), l.Meet(a.contents, b.contents))
	case KindRPC:
		return l.rpcMeet(a, b)
	}
	// Simple kinds are singletons; a and b of the same simple kind are equal.
	panic(fmt.Sprintf("types: unexpected meet of %s and %s", a, b))
}

func (l *Lattice) mustInterned(t *Type) {
	if t == nil {
		panic("types: nil type")
	}
	if !t.interned() {
		panic("types: scratch type used outside its cycle scope: " + t.String())
	}
}

func (l *Lattice) simplePair(a, b Kind) (*Type, *Type) {
	ta := &Type{kind: a}
	tb := &Type{kind: b}
	ta.key = "S" + strconv.Itoa(int(a))
	tb.key = "S" + strconv.Itoa(int(b))
	l.install(ta)
	l.install(tb)
	ta.dual, tb.dual = tb, ta
	return ta, tb
}

func (l *Lattice) install(t *Type) {
	t.uid = len(l.all)
	l.all = append(l.all, t)
	l.table[t.key] = t
}

// intern canonicalizes an acyclic type whose children are all interned,
// installing it together with its dual.
func (l *Lattice) intern(t *Type) *Type {
	t.uid = -1
	t.key = flatKey(t)
	if got, ok := l.table[t.key]; ok {
		return got
	}
	d := l.flatDual(t)
	d.uid = -1
	d.key = flatKey(d)
	l.install(t)
	if d.key == t.key {
		t.dual = t
		return t
	}
	if got, ok := l.table[d.key]; ok {
		panic("types: dual interned without its partner: " + got.String())
	}
	l.install(d)
	t.dual, d.dual = d, t
	return t
}

func (l *Lattice) flatDual(t *Type) *Type {
	switch t.kind {
	case KindInt:
		if t.min == t.max {
			return &Type{kind: KindInt, min: t.min, max: t.max}
		}
		return &Type{kind: KindInt, min: t.max, max: t.min, widen: -t.widen}
	case KindFlt:
		if t.sz == 0 {
			return &Type{kind: KindFlt, con: t.con}
		}
		return &Type{kind: KindFlt, sz: -t.sz}
	case KindTuple:
		elems := make([]*Type, len(t.elems))
		for i, e := range t.elems {
			elems[i] = e.dual
		}
		return &Type{kind: KindTuple, end: -t.end, elems: elems}
	case KindFunPtr:
		return &Type{kind: KindFunPtr, nilc: 3 - t.nilc, sig: t.sig.dual, ret: t.ret.dual, fidxs: ^t.fidxs & AllFidxs}
	case KindMem:
		return &Type{kind: KindMem, alias: aliasDual(t.alias), contents: t.contents.dual}
	case KindRPC:
		return &Type{kind: KindRPC, cofin: !t.cofin, rpcs: t.rpcs}
	}
	panic("types: no flat dual for " + t.kind.String())
}

func flatKey(t *Type) string {
	var sb strings.Builder
	switch t.kind {
	case KindInt:
		fmt.Fprintf(&sb, "I%d,%d,%d", t.min, t.max, t.widen)
	case KindFlt:
		fmt.Fprintf(&sb, "F%d,%x", t.sz, math.Float64bits(t.con))
	case KindTuple:
		fmt.Fprintf(&sb, "T%d(", t.end)
		for _, e := range t.elems {
			sb.WriteString(strconv.Itoa(e.uid))
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
	case KindFunPtr:
		fmt.Fprintf(&sb, "P%d,%d,%d,%x", t.nilc, t.sig.uid, t.ret.uid, t.fidxs)
	case KindMem:
		fmt.Fprintf(&sb, "M%d,%d", t.alias, t.contents.uid)
	case KindRPC:
		fmt.Fprintf(&sb, "R%t(", t.cofin)
		for _, r := range t.rpcs {
			sb.WriteString(strconv.Itoa(r))
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
	default:
		panic("types: no flat key for " + t.kind.String())
	}
	return sb.String()
}
