package types

import (
	"math/bits"
	"strconv"
	"strings"
)

// FunPtr returns a function pointer type. sig must be a tuple of argument
// types. Bit 0 of fidxs is ignored.
func (l *Lattice) FunPtr(nilc uint8, sig, ret *Type, fidxs uint64) *Type {
	l.mustInterned(sig)
	l.mustInterned(ret)
	return l.intern(&Type{kind: KindFunPtr, nilc: nilc, sig: sig, ret: ret, fidxs: fidxs & AllFidxs})
}

// FunConst returns the not-nil constant pointer to function fidx.
func (l *Lattice) FunConst(fidx int, sig, ret *Type) *Type {
	return l.FunPtr(NilNotNil, sig, ret, FidxBit(fidx))
}

// NFuns returns the number of possible callees; -1 when the set is unbounded.
func (t *Type) NFuns() int {
	if t.fidxs == AllFidxs {
		return -1
	}
	return bits.OnesCount64(t.fidxs)
}

func funString(t *Type) string {
	var sb strings.Builder
	if t.IsHigh() {
		sb.WriteByte('~')
	}
	sb.WriteByte('{')
	if t.sig.end == tupleRegular {
		for i, a := range t.sig.elems {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(a.String())
		}
	} else {
		sb.WriteString(t.sig.String())
	}
	sb.WriteString(" -> ")
	sb.WriteString(t.ret.String())
	sb.WriteString(" #")
	switch {
	case t.fidxs == AllFidxs:
		sb.WriteString("ALL")
	case t.fidxs == 0:
		sb.WriteString("NONE")
	default:
		first := true
		for f := t.fidxs; f != 0; f = NextFidx(f) {
			if !first {
				sb.WriteByte(',')
			}
			first = false
			sb.WriteString(strconv.Itoa(bits.TrailingZeros64(f)))
		}
	}
	sb.WriteByte('}')
	if t.nilc == NilMaybe || t.nilc == NilHighChoice {
		sb.WriteByte('?')
	}
	return sb.String()
}
