// Package son implements the Sea of Nodes graph and its optimizer.
//
// A Graph holds every node of one compilation: values and control are both
// nodes, connected by ordered input edges and unordered output edges.
// Each node caches a type from the types lattice.
//
// ARCHITECTURE:
//
// Single-Threaded Rewriting:
// All mutation goes through a few edge primitives (SetDef, AddDef, DelDef,
// Subsume, Kill). Each first unlocks the node from the value table, so a
// node's structural hash never goes stale.
//
// Peephole Protocol:
// 1. compute derives the type from the inputs' cached types
// 2. setType installs it and queues users and distant dependents
// 3. a high or constant result is replaced by a Constant
// 4. value numbering merges structurally equal nodes
// 5. idealize applies the op-specific rewrites
//
// Passes:
//   - RunToFixpoint: the pessimistic pass. Types only move up.
//   - RunOptimistic: sparse conditional constant propagation with call graph
//     discovery. Types start at Top and only move down, bounded by the
//     pessimistic result, and a pessimistic cleanup follows.
//
// CRITICAL PATTERNS:
//
// Distant Dependencies:
// A rule that reads a node that is not a direct input registers itself with
// addDep, and is requeued when that node's type changes or it dies.
//
// Determinism:
// The worklist pops in seeded random order. Different seeds reach the same
// fixpoint up to node ids; Census compares graphs without ids.
//
// Invariant violations panic with *InvariantError inside the package and
// come back out of the passes as returned errors.
package son
