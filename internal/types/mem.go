package types

import "strconv"

// Mem returns the memory type for alias holding contents.
func (l *Lattice) Mem(alias int, contents *Type) *Type {
	l.mustInterned(contents)
	return l.intern(&Type{kind: KindMem, alias: alias, contents: contents})
}

// Aliases form a flat lattice: none on top, all on the bottom and every
// specific alias a self-dual constant in between.
func aliasMeet(a, b int) int {
	switch {
	case a == b:
		return a
	case a == AliasNone:
		return b
	case b == AliasNone:
		return a
	}
	return AliasAll
}

func aliasDual(a int) int {
	switch a {
	case AliasNone:
		return AliasAll
	case AliasAll:
		return AliasNone
	}
	return a
}

func memString(t *Type) string {
	switch t.alias {
	case AliasNone:
		return "~MEM"
	case AliasAll:
		if t.contents.kind == KindBottom {
			return "MEM"
		}
		return "MEM#ALL:" + t.contents.String()
	}
	return "MEM#" + strconv.Itoa(t.alias) + ":" + t.contents.String()
}
