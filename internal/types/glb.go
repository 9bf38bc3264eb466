package types

// Glb returns the greatest lower bound of t that cannot widen further.
// With mem set the bound is for a value stored in memory, where integer
// and float widths are fixed by the declaration.
func (l *Lattice) Glb(t *Type, mem bool) *Type {
	switch t.kind {
	case KindTop, KindBottom:
		return l.Bottom
	case KindCtrl, KindXCtrl:
		return l.Ctrl
	case KindInt:
		switch {
		case !mem, t.min == t.max:
			return l.IntBot
		case t.IsHigh():
			return t.dual
		}
		return t
	case KindFlt:
		switch {
		case !mem:
			return l.F64
		case t.sz == 0:
			if isF32(t.con) {
				return l.F32
			}
			return l.F64
		case t.IsHigh():
			return t.dual
		}
		return t
	case KindTuple:
		if t.end != tupleRegular {
			return l.TupleBot
		}
		elems := make([]*Type, len(t.elems))
		for i, e := range t.elems {
			elems[i] = l.Glb(e, mem)
		}
		return l.Tuple(elems...)
	case KindMemPtr:
		return l.MemPtr(NilMaybe, t.obj)
	case KindFunPtr:
		return l.FunPtr(NilMaybe, t.sig, t.ret, AllFidxs)
	case KindMem:
		return l.Mem(t.alias, l.Glb(t.contents, true))
	case KindRPC:
		return l.RPCBot
	}
	return t
}

// IsGlb reports whether t is already its own greatest lower bound.
func (l *Lattice) IsGlb(t *Type, mem bool) bool { return l.Glb(t, mem) == t }
