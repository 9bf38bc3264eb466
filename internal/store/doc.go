// Package store provides SQLite-backed history of optimizer runs.
//
// Each run records the scenario, seed and pass mode it ran with, whether it
// passed, the census of the final graph with its fingerprint, and the final
// type of every live node.
//
// # Critical Patterns
//
// Logical ordering:
//   - Runs are ordered by seq INTEGER (insertion order), never timestamps
//   - All list queries include: ORDER BY seq ASC, id ASC COLLATE BINARY
//
// Canonical encoding:
//   - census and errors are stored as canonical JSON, so equal runs store
//     equal text
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
