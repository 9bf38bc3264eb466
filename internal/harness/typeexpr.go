package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/seanodes/internal/types"
)

// ParseType reads a type expression:
//
//	5, -3          integer constants
//	2.5, 1e3       float constants
//	int[0,10]      an integer range
//	int bool i8 i16 i32 u8 u16 u32 flt f32
//	top bot ctrl xctrl ~int ~flt
//
// Every result is interned in l.
func ParseType(l *types.Lattice, s string) (*types.Type, error) {
	s = strings.TrimSpace(s)
	if t, ok := namedType(l, s); ok {
		return t, nil
	}
	if rest, ok := strings.CutPrefix(s, "int["); ok {
		body, ok := strings.CutSuffix(rest, "]")
		if !ok {
			return nil, fmt.Errorf("type %q: missing ]", s)
		}
		loS, hiS, ok := strings.Cut(body, ",")
		if !ok {
			return nil, fmt.Errorf("type %q: want int[lo,hi]", s)
		}
		lo, err := strconv.ParseInt(strings.TrimSpace(loS), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", s, err)
		}
		hi, err := strconv.ParseInt(strings.TrimSpace(hiS), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", s, err)
		}
		if lo > hi {
			return nil, fmt.Errorf("type %q: empty range", s)
		}
		return l.IntRange(lo, hi), nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return l.Int(v), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return l.Flt(v), nil
	}
	return nil, fmt.Errorf("unknown type %q", s)
}

func namedType(l *types.Lattice, s string) (*types.Type, bool) {
	switch s {
	case "top":
		return l.Top, true
	case "bot":
		return l.Bottom, true
	case "ctrl":
		return l.Ctrl, true
	case "xctrl":
		return l.XCtrl, true
	case "int":
		return l.IntBot, true
	case "~int":
		return l.IntTop, true
	case "bool":
		return l.Bool, true
	case "i8":
		return l.I8, true
	case "i16":
		return l.I16, true
	case "i32":
		return l.I32, true
	case "u8":
		return l.U8, true
	case "u16":
		return l.U16, true
	case "u32":
		return l.U32, true
	case "flt":
		return l.F64, true
	case "~flt":
		return l.FltTop, true
	case "f32":
		return l.F32, true
	}
	return nil, false
}
