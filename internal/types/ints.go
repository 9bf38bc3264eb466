package types

import (
	"math"
	"math/bits"
	"strconv"
)

// Int returns the integer constant v.
func (l *Lattice) Int(v int64) *Type { return l.intMake(v, v, 0) }

// IntRange returns the integer range [lo,hi] with widen 0.
// A range with lo > hi is the high (dual) range.
func (l *Lattice) IntRange(lo, hi int64) *Type { return l.intMake(lo, hi, 0) }

// IntRangeWiden returns [lo,hi] with an explicit widen counter.
func (l *Lattice) IntRangeWiden(lo, hi int64, widen int8) *Type { return l.intMake(lo, hi, widen) }

func (l *Lattice) intMake(lo, hi int64, widen int8) *Type {
	if lo == hi {
		widen = 0
	}
	return l.intern(&Type{kind: KindInt, min: lo, max: hi, widen: widen})
}

// WidenLoop returns a range one widen step wider than t, or minType once
// the counter is exhausted. Loop phis use it to bound the number of
// distinct types a back edge can carry.
func (l *Lattice) WidenLoop(t, minType *Type) *Type {
	if t.widen < 3 {
		return l.intMake(t.min, t.max, t.widen+1)
	}
	return minType
}

// Widen forces an integer range to maximum widening.
func (l *Lattice) Widen(t *Type) *Type {
	if t.kind != KindInt || t.widen == 3 {
		return t
	}
	return l.intMake(t.min, t.max, 3)
}

// Mask returns the AND-mask of bits that may be set in t.
func (t *Type) Mask() int64 {
	if t.IsHigh() {
		return 0
	}
	if t.min == t.max {
		return t.min
	}
	x := uint64(t.min ^ t.max)
	ff1 := int64(1) << (63 - bits.LeadingZeros64(x))
	return t.min | (ff1 - 1) | ff1
}

// NonZero narrows t to exclude zero where the range touches it. It reports
// false when t is exactly zero.
func (l *Lattice) NonZero(t *Type) (*Type, bool) {
	switch t.kind {
	case KindInt:
		switch {
		case t.IsHigh():
			return t, true
		case t == l.Zero:
			return nil, false
		case t.min == 0:
			return l.IntRange(1, max(t.max, 1)), true
		case t.max == 0:
			return l.IntRange(t.min, -1), true
		}
		return t, true
	case KindMemPtr:
		if t.nilc == NilMaybe {
			return l.MemPtr(NilNotNil, t.obj), true
		}
	case KindFunPtr:
		if t.nilc == NilMaybe {
			return l.FunPtr(NilNotNil, t.sig, t.ret, t.fidxs), true
		}
	}
	return t, true
}

// MakeZero returns the zero value of t's kind.
func (l *Lattice) MakeZero(t *Type) *Type {
	switch t.kind {
	case KindInt:
		return l.Zero
	case KindFlt:
		return l.FZero
	case KindMemPtr:
		return l.Null
	case KindFunPtr:
		return l.FunPtr(NilMaybe, t.sig, t.ret, 0)
	}
	return l.Top
}

func (l *Lattice) intLogSize(t *Type) int {
	switch {
	case t.IsHigh():
		return 0
	case t == l.I8 || t == l.U8 || t == l.Bool:
		return 0
	case t == l.I16 || t == l.U16:
		return 1
	case t == l.I32 || t == l.U32:
		return 2
	case t == l.IntBot:
		return 3
	case t.min == t.max:
		switch v := t.min; {
		case -0xFF <= v && v <= 0xFF:
			return 0
		case -0xFFFF <= v && v <= 0xFFFF:
			return 1
		case -0xFFFFFFFF <= v && v <= 0xFFFFFFFF:
			return 2
		}
		return 3
	case -128 <= t.min && t.max < 128:
		return 0
	}
	return 3
}

func intString(t *Type) string {
	if t.min == t.max {
		return strconv.FormatInt(t.min, 10)
	}
	lo, hi, x := t.min, t.max, ""
	if hi < lo {
		lo, hi, x = t.max, t.min, "~"
	}
	return x + rangeName(lo, hi)
}

func rangeName(lo, hi int64) string {
	switch {
	case lo == math.MinInt64 && hi == math.MaxInt64:
		return "int"
	case lo == 0 && hi == 1:
		return "bool"
	case lo == -1 && hi == 0:
		return "i1"
	case lo == -128 && hi == 127:
		return "i8"
	case lo == -32768 && hi == 32767:
		return "i16"
	case lo == math.MinInt32 && hi == math.MaxInt32:
		return "i32"
	case lo == 0 && hi == 255:
		return "u8"
	case lo == 0 && hi == 65535:
		return "u16"
	case lo == 0 && hi == math.MaxUint32:
		return "u32"
	}
	return "[" + strconv.FormatInt(lo, 10) + "-" + strconv.FormatInt(hi, 10) + "]"
}
