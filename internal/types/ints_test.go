package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInt_MeetIsHull(t *testing.T) {
	l := New()
	assert.Same(t, l.IntRange(2, 3), l.Meet(l.Int(2), l.Int(3)))
	assert.Same(t, l.IntRange(-5, 10), l.Meet(l.IntRange(-5, 0), l.IntRange(4, 10)))
	assert.Same(t, l.U8, l.Meet(l.Int(0), l.U8))
	assert.Same(t, l.Int(7), l.Meet(l.Int(7), l.IntTop))
}

func TestInt_ConstantsHaveNoWiden(t *testing.T) {
	l := New()
	c := l.IntRangeWiden(4, 4, 3)
	assert.Same(t, l.Int(4), c)
	assert.Equal(t, int8(0), c.Widen())
}

func TestInt_HighRanges(t *testing.T) {
	l := New()
	r := l.IntRange(0, 10)
	h := r.Dual()
	assert.True(t, h.IsHigh())
	assert.False(t, r.IsHigh())
	assert.Equal(t, "~[0-10]", h.String())
	assert.True(t, l.Isa(h, l.Int(5)), "a high range is above its constants")
	assert.Same(t, l.IntBot, l.Meet(l.IntTop.Dual(), l.Int(1)))
}

func TestInt_WidenLoop(t *testing.T) {
	l := New()
	r := l.IntRange(0, 1)
	for w := int8(1); w <= 3; w++ {
		r = l.WidenLoop(r, l.IntBot)
		assert.Equal(t, w, r.Widen())
		assert.Equal(t, int64(0), r.Min())
		assert.Equal(t, int64(1), r.Max())
	}
	assert.Same(t, l.IntBot, l.WidenLoop(r, l.IntBot), "exhausted widen falls to the minimum type")
	assert.True(t, l.Isa(l.IntRange(0, 1), l.Widen(l.IntRange(0, 1))))
}

func TestInt_Mask(t *testing.T) {
	l := New()
	assert.Equal(t, int64(0xFF), l.U8.Mask())
	assert.Equal(t, int64(0x13), l.IntRange(16, 18).Mask())
	assert.Equal(t, int64(5), l.Int(5).Mask())
	assert.Equal(t, int64(0), l.IntTop.Mask())
}

func TestInt_NonZero(t *testing.T) {
	l := New()
	nz, ok := l.NonZero(l.Bool)
	assert.True(t, ok)
	assert.Same(t, l.One, nz)

	nz, ok = l.NonZero(l.I1)
	assert.True(t, ok)
	assert.Same(t, l.Int(-1), nz)

	_, ok = l.NonZero(l.Zero)
	assert.False(t, ok)

	nz, _ = l.NonZero(l.PtrBot)
	assert.Same(t, l.NotNilPtr, nz)
}

func TestInt_LogSize(t *testing.T) {
	l := New()
	tests := []struct {
		typ  *Type
		want int
	}{
		{l.I8, 0},
		{l.Bool, 0},
		{l.U16, 1},
		{l.I32, 2},
		{l.IntBot, 3},
		{l.Int(200), 0},
		{l.Int(40000), 1},
		{l.Int(100000), 2},
		{l.Int(math.MaxInt64), 3},
		{l.IntRange(-3, 100), 0},
		{l.IntRange(0, 1000), 3},
		{l.F32, 2},
		{l.F64, 3},
		{l.NotNilPtr, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, l.LogSize(tt.typ), tt.typ.String())
	}
}

func TestFlt_Meet(t *testing.T) {
	l := New()
	assert.Same(t, l.F32, l.Meet(l.Flt(1.5), l.Flt(2.5)))
	assert.Same(t, l.F64, l.Meet(l.Flt(1.5), l.Flt(0.1)))
	assert.Same(t, l.F64, l.Meet(l.F32, l.Flt(0.1)))
	assert.Same(t, l.Flt(0.1), l.Meet(l.FltTop, l.Flt(0.1)))
	assert.Same(t, l.Flt(1.5), l.Meet(l.F32.Dual(), l.Flt(1.5)))
	assert.Same(t, l.F64, l.Meet(l.F32.Dual(), l.Flt(0.1)))
	assert.Same(t, l.F64, l.Meet(l.F32, l.F64))
}

func TestLayout_WidestFirst(t *testing.T) {
	l := New()
	p := l.MemPtr(NilMaybe, l.Struct("Node"))
	s := l.Struct("Rec",
		Field{Name: "a", Type: l.I8},
		Field{Name: "b", Type: l.IntBot},
		Field{Name: "c", Type: l.I16},
		Field{Name: "d", Type: p},
		Field{Name: "e", Type: l.U8},
	)
	offsets, size := l.Layout(s)
	assert.Equal(t, []int{14, 0, 12, 8, 15}, offsets)
	assert.Equal(t, 16, size)
	assert.Equal(t, 3, l.Alignment(s))
}

func TestLayout_RoundsToAlignment(t *testing.T) {
	l := New()
	s := l.Struct("Small", Field{Name: "x", Type: l.I32}, Field{Name: "y", Type: l.I8})
	offsets, size := l.Layout(s)
	assert.Equal(t, []int{0, 4}, offsets)
	assert.Equal(t, 8, size)
}
