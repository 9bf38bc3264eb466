package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seanodes/internal/types"
)

func TestParseType(t *testing.T) {
	l := types.New()

	tests := []struct {
		in   string
		want *types.Type
	}{
		{"5", l.Int(5)},
		{"-3", l.Int(-3)},
		{" 7 ", l.Int(7)},
		{"2.5", l.Flt(2.5)},
		{"int[0,10]", l.IntRange(0, 10)},
		{"int[-5, 5]", l.IntRange(-5, 5)},
		{"int", l.IntBot},
		{"~int", l.IntTop},
		{"bool", l.Bool},
		{"u8", l.U8},
		{"flt", l.F64},
		{"f32", l.F32},
		{"top", l.Top},
		{"bot", l.Bottom},
		{"ctrl", l.Ctrl},
		{"xctrl", l.XCtrl},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(l, tt.in)
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}
}

func TestParseType_Errors(t *testing.T) {
	l := types.New()

	for _, in := range []string{"", "integer", "int[0,10", "int[0]", "int[a,1]", "int[5,1]"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseType(l, in)
			assert.Error(t, err)
		})
	}
}
