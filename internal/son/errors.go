package son

import (
	"errors"
	"fmt"
)

// InvariantError reports an optimizer bug detected while rewriting the graph.
//
// Invariant errors are never caused by the program being compiled. They include:
//   - Monotonicity: a recomputed type moved against the pass direction
//   - Locked mutation: an edge change on a node still linked in GVN
//   - Dead use: an operation on a killed node
//   - Sandwich: an optimistic type fell below the pessimistic one
//
// The primitives raise them with panic; the public passes recover them into
// returned errors.
type InvariantError struct {
	// Code identifies the violated invariant.
	Code InvariantCode

	// Message is a human-readable description.
	Message string

	// NodeID identifies the offending node, or 0.
	NodeID int

	// Op is the offending node's op.
	Op Op
}

// InvariantCode categorizes invariant violations.
type InvariantCode string

const (
	// ErrCodeMonotonicity indicates a type moved the wrong way in the lattice.
	ErrCodeMonotonicity InvariantCode = "MONOTONICITY"

	// ErrCodeLocked indicates an edge mutation on a node linked in GVN.
	ErrCodeLocked InvariantCode = "GVN_LOCKED"

	// ErrCodeDeadNode indicates use of a killed node.
	ErrCodeDeadNode InvariantCode = "DEAD_NODE"

	// ErrCodeStillUsed indicates a kill of a node that still has uses.
	ErrCodeStillUsed InvariantCode = "STILL_USED"

	// ErrCodeSandwich indicates an optimistic type below its pessimistic bound.
	ErrCodeSandwich InvariantCode = "SANDWICH"

	// ErrCodeNotStable indicates a node off the worklist that still makes progress.
	ErrCodeNotStable InvariantCode = "NOT_STABLE"

	// ErrCodeBadGraph indicates a malformed graph handed to a pass.
	ErrCodeBadGraph InvariantCode = "BAD_GRAPH"
)

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.NodeID != 0 {
		return fmt.Sprintf("%s: %s (node=%s%d)", e.Code, e.Message, e.Op, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// QuotaError reports that a pass hit its iteration limit before a fixpoint.
type QuotaError struct {
	Pass       string
	Iterations int
	Max        int
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	return fmt.Sprintf("QUOTA_EXCEEDED: %s pass exceeded max iterations (%d >= %d)", e.Pass, e.Iterations, e.Max)
}

// ErrPessimisticFirst is returned by RunOptimistic on a graph that has not
// completed RunToFixpoint.
var ErrPessimisticFirst = errors.New("optimistic pass requires a completed pessimistic pass")

// IsInvariantError returns true if err is (or wraps) an InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// IsQuotaError returns true if err is (or wraps) a QuotaError.
func IsQuotaError(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// InvariantCodeOf returns the code of a wrapped InvariantError, or "".
func InvariantCodeOf(err error) InvariantCode {
	var ie *InvariantError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

func fail(code InvariantCode, n *Node, format string, args ...any) {
	e := &InvariantError{Code: code, Message: fmt.Sprintf(format, args...)}
	if n != nil {
		e.NodeID, e.Op = n.id, n.op
	}
	panic(e)
}

// guard converts an InvariantError panic into *err. Other panics propagate.
func guard(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if ie, ok := r.(*InvariantError); ok {
		*err = ie
		return
	}
	panic(r)
}
