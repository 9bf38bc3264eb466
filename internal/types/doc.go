// Package types implements the monotone type lattice that values flow through
// in the Sea of Nodes optimizer.
//
// Every value is an immutable, interned *Type. Structurally equal types are
// pointer-equal once interned, so equality is a pointer compare and cyclic
// types can be compared without recursion.
//
// LATTICE:
//
// The lattice has two extremes, Top (no information) and Bottom (no
// constraint), and a center line of constants. Meet moves toward Bottom,
// Dual mirrors a type across the center line, and Join is derived:
//
//	Join(a, b) = Dual(Meet(Dual(a), Dual(b)))
//	Isa(a, b)  = Meet(a, b) == b
//
// Each kind is a product of small chains so Meet stays commutative,
// associative and idempotent:
//   - Int: [min,max] range crossed with a widen counter
//   - Flt: a five-point chain around float constants
//   - Tuple: elementwise, with distinguished tuple top and bottom
//   - Struct: named, ordered fields (type, alias, finality)
//   - MemPtr / FunPtr: a four-state nil chain crossed with the target
//   - Mem: a flat alias lattice crossed with the contents
//   - RPC: finite or co-finite sets of call-site ids
//
// OWNERSHIP:
//
// A Lattice owns the intern table. Builtin types are created once by New and
// captured as a baseline; Reset drops everything interned after that point so
// independent compilations in one process do not see each other's types.
//
// CYCLES:
//
// Recursive struct types are built through a CycleBuilder. Members are
// created uninterned, then Close minimizes the whole scratch graph together
// with every interned type it reaches, merges members into existing
// isomorphic cycles, computes duals for the remainder and installs them as a
// batch. All struct and pointer construction goes through the same path,
// including meets of recursive structs.
package types
