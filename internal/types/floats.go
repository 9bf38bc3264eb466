package types

import "strconv"

// Flt returns the float constant v.
func (l *Lattice) Flt(v float64) *Type { return l.fltMake(0, v) }

func (l *Lattice) fltMake(sz int8, con float64) *Type {
	if sz != 0 {
		con = 0
	}
	return l.intern(&Type{kind: KindFlt, sz: sz, con: con})
}

// fltMeet walks the chain -64 < -32 < constants < 32 < 64. Constants that
// fit in a float32 stay at or above F32.
func (l *Lattice) fltMeet(a, b *Type) *Type {
	lo, hi := a, b
	if b.sz < a.sz {
		lo, hi = b, a
	}
	switch {
	case hi.sz == 64:
		return l.F64
	case lo.sz == -64:
		return hi
	case hi.sz == 32:
		if lo.sz == 0 && !isF32(lo.con) {
			return l.F64
		}
		return l.F32
	case hi.sz != 0:
		return hi
	case lo.sz == -32:
		if isF32(hi.con) {
			return hi
		}
		return l.F64
	case isF32(lo.con) && isF32(hi.con):
		return l.F32
	}
	return l.F64
}

func fltString(t *Type) string {
	switch t.sz {
	case -64:
		return "~flt"
	case -32:
		return "~f32"
	case 32:
		return "f32"
	case 64:
		return "flt"
	}
	s := strconv.FormatFloat(t.con, 'g', -1, 64)
	if !hasFloatMark(s) {
		s += ".0"
	}
	if isF32(t.con) {
		s += "f"
	}
	return s
}

func hasFloatMark(s string) bool {
	for _, c := range s {
		switch c {
		case '.', 'e', 'E', 'N', 'I':
			return true
		}
	}
	return false
}
