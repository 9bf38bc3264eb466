package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample returns a spread of types across every kind, plus their duals.
func sample(l *Lattice) []*Type {
	sig := l.Tuple(l.IntBot)
	ts := []*Type{
		l.Top, l.Bottom, l.Ctrl, l.XCtrl,
		l.IntBot, l.I8, l.U8, l.Bool, l.Zero, l.One, l.Int(-7), l.Int(300),
		l.IntRange(3, 9), l.IntRangeWiden(0, 100, 2),
		l.F64, l.F32, l.FZero, l.Flt(3.141592653589793), l.Flt(2.5),
		l.TupleBot, l.IfBoth, l.IfTrue, l.IfFalse, l.Tuple(l.IntBot, l.F32),
		l.Tuple(l.Int(1), l.Int(2)), l.ReturnTuple,
		l.FunBot, l.FunConst(1, sig, l.IntBot), l.FunConst(2, sig, l.IntBot),
		l.FunPtr(NilMaybe, sig, l.IntBot, FidxBit(1)|FidxBit(3)),
		l.MemBot, l.Mem(2, l.IntBot), l.Mem(2, l.Int(4)), l.Mem(3, l.F64),
		l.RPCBot, l.RPC(4), l.RPC(5), l.RPC(4, 5, 6),
		l.StructBot, l.PtrBot, l.NotNilPtr, l.Null,
	}
	point := l.Struct("Point", Field{Name: "x", Type: l.IntBot}, Field{Name: "y", Type: l.I32, Final: true})
	ts = append(ts, point, l.MemPtr(NilNotNil, point), l.MemPtr(NilMaybe, point), list(l))
	n := len(ts)
	for i := 0; i < n; i++ {
		ts = append(ts, ts[i].Dual())
	}
	return ts
}

func list(l *Lattice) *Type {
	cb := l.OpenCycle()
	s := cb.Struct("List")
	p := cb.Ptr(NilMaybe, s)
	cb.SetFields(s, Field{Name: "next", Type: p}, Field{Name: "val", Type: l.IntBot})
	cb.Close()
	return cb.Interned(s)
}

func TestLattice_DualIsInvolution(t *testing.T) {
	l := New()
	for _, a := range sample(l) {
		require.NotNil(t, a.Dual(), "%s has no dual", a)
		assert.Same(t, a, a.Dual().Dual(), "dual of dual of %s", a)
	}
}

func TestLattice_MeetCommutativeIdempotent(t *testing.T) {
	l := New()
	ts := sample(l)
	for _, a := range ts {
		assert.Same(t, a, l.Meet(a, a), "idempotent %s", a)
		for _, b := range ts {
			ab, ba := l.Meet(a, b), l.Meet(b, a)
			assert.Same(t, ab, ba, "meet(%s, %s)=%s but meet(%s, %s)=%s", a, b, ab, b, a, ba)
		}
	}
}

func TestLattice_MeetAssociative(t *testing.T) {
	l := New()
	ts := sample(l)
	for _, a := range ts {
		for _, b := range ts {
			ab := l.Meet(a, b)
			for _, c := range ts {
				lhs := l.Meet(ab, c)
				rhs := l.Meet(a, l.Meet(b, c))
				if lhs != rhs {
					t.Fatalf("not associative: (%s & %s) & %s = %s, but %s & (%s & %s) = %s", a, b, c, lhs, a, b, c, rhs)
				}
			}
		}
	}
}

func TestLattice_DualIsAntitone(t *testing.T) {
	l := New()
	ts := sample(l)
	for _, a := range ts {
		for _, b := range ts {
			if l.Isa(a, b) {
				assert.True(t, l.Isa(b.Dual(), a.Dual()), "%s isa %s but duals disagree", a, b)
			}
		}
	}
}

func TestLattice_ExtremesBracketEverything(t *testing.T) {
	l := New()
	for _, a := range sample(l) {
		assert.Same(t, a, l.Meet(a, l.Top), "top identity for %s", a)
		assert.Same(t, l.Bottom, l.Meet(a, l.Bottom), "bottom absorbs %s", a)
		assert.True(t, l.Isa(l.Top, a))
		assert.True(t, l.Isa(a, l.Bottom))
	}
}

func TestLattice_JoinIsDualMeet(t *testing.T) {
	l := New()
	assert.Same(t, l.IntRange(3, 5), l.Join(l.IntRange(0, 5), l.IntRange(3, 9)))
	assert.Same(t, l.Ctrl, l.Join(l.Ctrl, l.Ctrl))
	assert.Same(t, l.XCtrl, l.Join(l.Ctrl, l.XCtrl))
	assert.Same(t, l.Zero, l.Join(l.Zero, l.IntBot))
}

func TestLattice_SelfDualConstants(t *testing.T) {
	l := New()
	for _, c := range []*Type{l.Zero, l.Int(42), l.FZero, l.Flt(1.5), l.RPC(7)} {
		assert.False(t, c.IsHigh(), c.String())
		if c.Kind() != KindRPC {
			assert.Same(t, c, c.Dual(), "%s should be self-dual", c)
		}
		assert.True(t, c.IsConstant(), c.String())
	}
	assert.Same(t, l.Top, l.Bottom.Dual())
	assert.Same(t, l.XCtrl, l.Ctrl.Dual())
	assert.Same(t, l.RPCTop, l.RPCBot.Dual())
}

func TestLattice_Reset(t *testing.T) {
	l := New()
	base := l.Len()
	require.Equal(t, base, l.Baseline())

	a := l.Int(12345)
	l.Tuple(a, l.Int(6789))
	list(l)
	require.Greater(t, l.Len(), base)

	l.Reset()
	assert.Equal(t, base, l.Len())
	b := l.Int(12345)
	assert.NotSame(t, a, b, "reset must forget non-builtin types")
	assert.Equal(t, base, b.UID())
	assert.Same(t, l.IntBot, l.Meet(l.Int(1), l.IntBot), "builtins survive reset")
}

func TestLattice_ScratchTypeRejected(t *testing.T) {
	l := New()
	cb := l.OpenCycle()
	s := cb.Struct("S")
	cb.SetFields(s)
	assert.Panics(t, func() { l.Meet(s, l.StructBot) })
	assert.Panics(t, func() { cb.Interned(s) })
	cb.Close()
	assert.Panics(t, func() { cb.Struct("T") })
}

func TestLattice_Glb(t *testing.T) {
	l := New()
	tests := []struct {
		in   *Type
		mem  bool
		want *Type
	}{
		{l.Int(5), false, l.IntBot},
		{l.Int(5), true, l.IntBot},
		{l.U8, true, l.U8},
		{l.U8.Dual(), true, l.U8},
		{l.U8, false, l.IntBot},
		{l.Flt(1.5), true, l.F32},
		{l.Flt(0.1), true, l.F64},
		{l.F32, false, l.F64},
		{l.XCtrl, false, l.Ctrl},
		{l.Top, false, l.Bottom},
		{l.RPC(3), false, l.RPCBot},
		{l.NotNilPtr, false, l.PtrBot},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", i, tt.in), func(t *testing.T) {
			assert.Same(t, tt.want, l.Glb(tt.in, tt.mem))
		})
	}
}

func TestType_String(t *testing.T) {
	l := New()
	sig := l.Tuple(l.IntBot, l.IntBot)
	tests := []struct {
		typ  *Type
		want string
	}{
		{l.Top, "Top"},
		{l.Bottom, "Bot"},
		{l.XCtrl, "~Ctrl"},
		{l.Int(5), "5"},
		{l.IntBot, "int"},
		{l.IntTop, "~int"},
		{l.U8, "u8"},
		{l.IntRange(0, 10), "[0-10]"},
		{l.Flt(2), "2.0f"},
		{l.Flt(0.1), "0.1"},
		{l.F64, "flt"},
		{l.FltTop, "~flt"},
		{l.IfTrue, "[Ctrl, ~Ctrl]"},
		{l.TupleBot, "[BOT]"},
		{l.FunConst(1, sig, l.IntBot), "{int,int -> int #1}"},
		{l.FunBot, "{[BOT] -> Bot #ALL}?"},
		{l.Null, "null"},
		{l.RPC(3, 4), "$[3,4]"},
		{l.RPCBot, "$[ALL]"},
		{l.MemBot, "MEM"},
		{l.Mem(2, l.IntBot), "MEM#2:int"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.String())
	}
}
