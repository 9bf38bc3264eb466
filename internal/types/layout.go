package types

// LogSize returns log2 of the storage size in bytes of a value of type t.
func (l *Lattice) LogSize(t *Type) int {
	switch t.kind {
	case KindInt:
		return l.intLogSize(t)
	case KindFlt:
		if t.sz == 32 || t.sz == -32 {
			return 2
		}
		return 3
	case KindMemPtr, KindFunPtr:
		return 2
	case KindTuple:
		n := 0
		for _, e := range t.elems {
			n = max(n, l.LogSize(e))
		}
		return n
	}
	return 3
}

// Alignment returns log2 of the required alignment of t. Structs align to
// their widest field.
func (l *Lattice) Alignment(t *Type) int {
	if t.kind != KindStruct {
		return l.LogSize(t)
	}
	a := 0
	for _, f := range t.fields {
		a = max(a, l.Alignment(f.Type))
	}
	return a
}

// Layout assigns byte offsets to the fields of struct s. Fields are placed
// widest first, keeping declaration order within a size class, so every
// field lands naturally aligned without padding between them. size is
// rounded up to the struct alignment.
func (l *Lattice) Layout(s *Type) (offsets []int, size int) {
	offsets = make([]int, len(s.fields))
	off := 0
	for lg := 3; lg >= 0; lg-- {
		for i, f := range s.fields {
			if l.LogSize(f.Type) == lg {
				offsets[i] = off
				off += 1 << lg
			}
		}
	}
	align := 1 << l.Alignment(s)
	return offsets, (off + align - 1) &^ (align - 1)
}
