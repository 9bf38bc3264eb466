package types

import (
	"slices"
	"strconv"
	"strings"
)

// RPC returns the finite set of return sites ids.
func (l *Lattice) RPC(ids ...int) *Type {
	return l.rpcMake(false, ids)
}

func (l *Lattice) rpcMake(cofin bool, ids []int) *Type {
	s := slices.Clone(ids)
	slices.Sort(s)
	s = slices.Compact(s)
	return l.intern(&Type{kind: KindRPC, cofin: cofin, rpcs: s})
}

// rpcMeet is set union where a co-finite set is everything but its ids.
func (l *Lattice) rpcMeet(a, b *Type) *Type {
	// Equal id lists with distinct polarity cancel to everything.
	if slices.Equal(a.rpcs, b.rpcs) {
		return l.RPCBot
	}
	switch {
	case a.cofin && b.cofin:
		var out []int
		for _, id := range a.rpcs {
			if _, ok := slices.BinarySearch(b.rpcs, id); ok {
				out = append(out, id)
			}
		}
		return l.rpcMake(true, out)
	case !a.cofin && !b.cofin:
		return l.rpcMake(false, append(slices.Clone(a.rpcs), b.rpcs...))
	}
	inf, sub := a, b
	if !a.cofin {
		inf, sub = b, a
	}
	var out []int
	for _, id := range inf.rpcs {
		if _, ok := slices.BinarySearch(sub.rpcs, id); !ok {
			out = append(out, id)
		}
	}
	return l.rpcMake(true, out)
}

func rpcString(t *Type) string {
	if len(t.rpcs) == 0 {
		if t.cofin {
			return "$[ALL]"
		}
		return "$[]"
	}
	ids := make([]string, len(t.rpcs))
	for i, id := range t.rpcs {
		ids[i] = strconv.Itoa(id)
	}
	neg := ""
	if t.cofin {
		neg = "-"
	}
	return "$[" + neg + strings.Join(ids, ",") + "]"
}
