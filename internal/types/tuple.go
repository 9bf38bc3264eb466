package types

import "strings"

// Tuple returns the tuple of the given element types.
func (l *Lattice) Tuple(elems ...*Type) *Type {
	for _, e := range elems {
		l.mustInterned(e)
	}
	cp := make([]*Type, len(elems))
	copy(cp, elems)
	return l.intern(&Type{kind: KindTuple, elems: cp})
}

func (l *Lattice) tupleMeet(a, b *Type) *Type {
	switch {
	case a.end == tupleTop:
		return b
	case b.end == tupleTop:
		return a
	case a.end == tupleBottom || b.end == tupleBottom || len(a.elems) != len(b.elems):
		return l.TupleBot
	}
	elems := make([]*Type, len(a.elems))
	for i := range elems {
		elems[i] = l.Meet(a.elems[i], b.elems[i])
	}
	return l.intern(&Type{kind: KindTuple, elems: elems})
}

func tupleConstant(t *Type) bool {
	if t.end != tupleRegular || len(t.elems) == 0 {
		return false
	}
	for _, e := range t.elems {
		if !e.IsConstant() {
			return false
		}
	}
	return true
}

func tupleString(t *Type) string {
	switch t.end {
	case tupleTop:
		return "[TOP]"
	case tupleBottom:
		return "[BOT]"
	}
	parts := make([]string, len(t.elems))
	for i, e := range t.elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
