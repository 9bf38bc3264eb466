// Package harness runs optimizer scenarios: small graphs described as data,
// optimized, and checked against assertions and golden snapshots.
//
// # Scenario Format
//
// Scenarios are YAML or CUE files with the following structure:
//
//	name: constant_fold
//	description: "2 + 3 folds to 5"
//	seed: 7
//	mode: pessimistic        # or optimistic
//	whole_world: false
//	raw: false               # true skips construction peepholes
//	nodes:
//	  - {id: main, op: fun, name: main, args: [int]}
//	  - {id: two,  op: con, type: "2"}
//	  - {id: sum,  op: Add, in: [main.arg0, two]}
//	  - {id: ret,  op: return, in: [main, main, main.mem, sum]}
//	assertions:
//	  - {type: return_type, fun: main, want: int}
//	  - {type: count, op: Add, count: 1}
//
// Node steps use builder keywords (fun, con, funptr, cast, if, region,
// loop, phi, close, return, call) or an op name (Add, LT, Minus, ...) for
// arithmetic. Types are written as type expressions; see ParseType.
//
// # Assertion Types
//
//   - return_type, return_op: a function's final return expression
//   - count: live nodes of an op
//   - dead, live: whether a step's node survived
//   - node_type: a surviving node's final type
//   - call_edges: the linked call graph
//   - unknown_callers: whether a function may be called from outside
//   - confluent: seeds 1..N reach the same census
//
// # Deterministic Testing
//
// Every run builds a fresh graph at a fixed seed, so node ids, the final
// graph and its census fingerprint are reproducible. Snapshots leave node
// ids out and are compared with goldie.
package harness
