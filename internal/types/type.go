package types

import (
	"math"
	"math/bits"
)

// Kind discriminates the payload carried by a Type.
type Kind uint8

const (
	// KindBottom is the lattice bottom: every possible value.
	KindBottom Kind = iota
	// KindTop is the lattice top: no information yet.
	KindTop
	// KindCtrl is live control flow.
	KindCtrl
	// KindXCtrl is dead control flow.
	KindXCtrl
	// KindInt is an integer range or constant.
	KindInt
	// KindFlt is a float size class or constant.
	KindFlt
	// KindTuple is a fixed-length list of unrelated types.
	KindTuple
	// KindStruct is a named record with ordered fields.
	KindStruct
	// KindMemPtr is a pointer to a struct.
	KindMemPtr
	// KindFunPtr is a function pointer: signature, return and callee set.
	KindFunPtr
	// KindMem is a memory state, either all of memory or one alias slice.
	KindMem
	// KindRPC is a return program counter: the set of possible return sites.
	KindRPC
)

var kindNames = [...]string{
	KindBottom: "Bottom",
	KindTop:    "Top",
	KindCtrl:   "Ctrl",
	KindXCtrl:  "XCtrl",
	KindInt:    "Int",
	KindFlt:    "Flt",
	KindTuple:  "Tuple",
	KindStruct: "Struct",
	KindMemPtr: "MemPtr",
	KindFunPtr: "FunPtr",
	KindMem:    "Mem",
	KindRPC:    "RPC",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(?)"
}

// Nil states shared by MemPtr and FunPtr. Meet takes the max; dual is 3-n.
const (
	NilHighNotNil uint8 = iota // above center, cannot be nil
	NilHighChoice              // above center, may choose nil
	NilNotNil                  // below center, never nil
	NilMaybe                   // below center, may be nil
)

// Alias values for memory slices.
const (
	AliasNone = 0 // top of the alias lattice
	AliasAll  = 1 // bottom of the alias lattice
)

const (
	tupleRegular int8 = 0
	tupleTop     int8 = 1
	tupleBottom  int8 = -1
)

// Field is one named member of a struct type.
type Field struct {
	Name  string
	Type  *Type
	Alias int
	Final bool
}

// Type is an interned lattice value. The zero value is not usable; obtain
// types from a Lattice.
type Type struct {
	kind Kind
	uid  int
	key  string
	dual *Type

	// KindInt
	min, max int64
	widen    int8

	// KindFlt
	sz  int8
	con float64

	// KindTuple
	elems []*Type
	end   int8

	// KindStruct
	name   string
	fields []Field

	// KindMemPtr, KindFunPtr
	nilc  uint8
	obj   *Type
	sig   *Type
	ret   *Type
	fidxs uint64

	// KindMem
	alias    int
	contents *Type

	// KindRPC
	rpcs  []int
	cofin bool
}

// Kind returns the discriminant.
func (t *Type) Kind() Kind { return t.kind }

// UID returns the intern ordinal. Scratch (uninterned) types return -1.
func (t *Type) UID() int { return t.uid }

// Dual returns the precomputed lattice mirror.
func (t *Type) Dual() *Type { return t.dual }

func (t *Type) interned() bool { return t.uid >= 0 }

// IsHigh reports whether t is above the center line.
func (t *Type) IsHigh() bool {
	switch t.kind {
	case KindTop, KindXCtrl:
		return true
	case KindInt:
		return t.min > t.max
	case KindFlt:
		return t.sz < 0
	case KindMemPtr:
		return t.nilc <= NilHighChoice
	case KindFunPtr:
		return t.nilc <= NilHighChoice || (t.nilc == NilNotNil && t.fidxs == 0)
	case KindMem:
		return t.alias == AliasNone
	case KindRPC:
		return !t.cofin && len(t.rpcs) == 0
	}
	return false
}

// IsConstant reports whether t is on the center line.
func (t *Type) IsConstant() bool {
	switch t.kind {
	case KindInt:
		return t.min == t.max
	case KindFlt:
		return t.sz == 0
	case KindMemPtr:
		return t.nilc == NilMaybe && t.obj != nil && t.obj.name == structTopName
	case KindFunPtr:
		return (t.nilc == NilNotNil && bits.OnesCount64(t.fidxs) == 1) ||
			(t.nilc == NilMaybe && t.fidxs == 0)
	case KindRPC:
		return !t.cofin && len(t.rpcs) == 1
	case KindTuple:
		return tupleConstant(t)
	}
	return false
}

// IsHighOrConst reports whether t is above or on the center line.
func (t *Type) IsHighOrConst() bool { return t.IsHigh() || t.IsConstant() }

// IsCtrl reports whether t is a control type, live or dead.
func (t *Type) IsCtrl() bool { return t.kind == KindCtrl || t.kind == KindXCtrl }

// Min returns the lower bound of an integer range.
func (t *Type) Min() int64 { return t.min }

// Max returns the upper bound of an integer range.
func (t *Type) Max() int64 { return t.max }

// Widen returns the loop widening counter of an integer range.
func (t *Type) Widen() int8 { return t.widen }

// Value returns the value of an integer constant.
func (t *Type) Value() int64 {
	if t.kind != KindInt || t.min != t.max {
		panic("types: Value of non-constant " + t.String())
	}
	return t.min
}

// FltValue returns the value of a float constant.
func (t *Type) FltValue() float64 {
	if t.kind != KindFlt || t.sz != 0 {
		panic("types: FltValue of non-constant " + t.String())
	}
	return t.con
}

// FltSize returns the float size class: -64, -32, 0, 32 or 64.
func (t *Type) FltSize() int8 { return t.sz }

// Len returns the number of tuple elements.
func (t *Type) Len() int { return len(t.elems) }

// Elem returns tuple element i.
func (t *Type) Elem(i int) *Type { return t.elems[i] }

// Elems returns the tuple elements. The slice must not be modified.
func (t *Type) Elems() []*Type { return t.elems }

// IsTupleTop reports whether t is the distinguished tuple top.
func (t *Type) IsTupleTop() bool { return t.kind == KindTuple && t.end == tupleTop }

// IsTupleBottom reports whether t is the distinguished tuple bottom.
func (t *Type) IsTupleBottom() bool { return t.kind == KindTuple && t.end == tupleBottom }

// Name returns the struct name.
func (t *Type) Name() string { return t.name }

// Fields returns the struct fields. The slice must not be modified.
func (t *Type) Fields() []Field { return t.fields }

// Field looks up a struct field by name.
func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Nil returns the nil state of a pointer type.
func (t *Type) Nil() uint8 { return t.nilc }

// Obj returns the struct a MemPtr points to.
func (t *Type) Obj() *Type { return t.obj }

// Sig returns the argument tuple of a FunPtr.
func (t *Type) Sig() *Type { return t.sig }

// Ret returns the return type of a FunPtr.
func (t *Type) Ret() *Type { return t.ret }

// Fidxs returns the callee-identity bit set of a FunPtr.
func (t *Type) Fidxs() uint64 { return t.fidxs }

// NArgs returns the number of declared arguments of a FunPtr.
func (t *Type) NArgs() int {
	if t.sig == nil || t.sig.end != tupleRegular {
		return -1
	}
	return len(t.sig.elems)
}

// Fidx returns the single callee identity of a constant FunPtr.
func (t *Type) Fidx() int { return bits.TrailingZeros64(t.fidxs) }

// Alias returns the alias of a memory type.
func (t *Type) Alias() int { return t.alias }

// Contents returns the value type held in a memory slice.
func (t *Type) Contents() *Type { return t.contents }

// RPCs returns the call-site ids of an RPC type. The slice must not be modified.
func (t *Type) RPCs() []int { return t.rpcs }

// CoFinite reports whether an RPC set is inverted (all ids except RPCs()).
func (t *Type) CoFinite() bool { return t.cofin }

// IsFinal reports whether every field reachable without a pointer hop is final.
func (t *Type) IsFinal() bool {
	switch t.kind {
	case KindStruct:
		for _, f := range t.fields {
			if !f.Final {
				return false
			}
		}
		return true
	case KindMemPtr:
		return t.obj.IsFinal()
	}
	return true
}

// NextFidx clears the lowest set callee bit.
func NextFidx(fidxs uint64) uint64 { return fidxs & (fidxs - 1) }

// FidxBit returns the set with only fidx present.
func FidxBit(fidx int) uint64 { return 1 << uint(fidx) }

// AllFidxs is every callee identity; bit 0 is never allocated.
const AllFidxs = math.MaxUint64 &^ 1

func isF32(v float64) bool { return float64(float32(v)) == v || math.IsNaN(v) }
