package son

import (
	"slices"

	"github.com/roach88/seanodes/internal/types"
)

// gvnState records whether a node is currently a key in the value table.
type gvnState uint8

const (
	// unlinked nodes are free to change their inputs.
	unlinked gvnState = iota
	// linked nodes own their structural key; edits must unlock first.
	linked
)

// Node is one vertex of the sea of nodes.
//
// Inputs are ordered and may hold nil (no value yet, or an edge removed).
// Outputs hold every node that uses this one as an input, once per use, plus
// a nil entry per Keep pin. A node is dead exactly when both lists are
// empty and its type is nil; dead nodes stay in the arena as tombstones.
type Node struct {
	g    *Graph
	id   int
	op   Op
	ins  []*Node
	outs []*Node
	typ  *types.Type
	gvn  gvnState
	hash uint64
	deps []*Node

	con  *types.Type // Constant value, Cast target, Phi/Parm declared type, Fun pointer type
	idx  int         // Proj, CProj and Parm slot
	name string      // Phi, Parm, Proj and Fun labels
	fun  *Node       // Return: owning Fun
	ret  *Node       // Fun: its Return
	rpc  *types.Type // CallEnd: the return-site constant handed to callees

	idepth      int
	idepthEpoch int
}

// ID returns the dense node id. Ids are never reused until Graph.Reset.
func (n *Node) ID() int { return n.id }

// Key implements worklist.Keyed.
func (n *Node) Key() int { return n.id }

// Op returns the node kind.
func (n *Node) Op() Op { return n.op }

// Type returns the cached type; nil once the node is dead.
func (n *Node) Type() *types.Type { return n.typ }

// In returns input i.
func (n *Node) In(i int) *Node { return n.ins[i] }

// NIns returns the number of input slots.
func (n *Node) NIns() int { return len(n.ins) }

// NOuts returns the number of uses, Keep pins included.
func (n *Node) NOuts() int { return len(n.outs) }

// Inputs returns a copy of the input list.
func (n *Node) Inputs() []*Node { return slices.Clone(n.ins) }

// Outputs returns a copy of the users, without Keep pins.
func (n *Node) Outputs() []*Node {
	out := make([]*Node, 0, len(n.outs))
	for _, u := range n.outs {
		if u != nil {
			out = append(out, u)
		}
	}
	return out
}

// Con returns the carried type of a Constant, Cast, Phi or Parm, or the
// function pointer of a Fun.
func (n *Node) Con() *types.Type { return n.con }

// Index returns the slot of a Proj, CProj or Parm.
func (n *Node) Index() int { return n.idx }

// Name returns the label of a Phi, Parm, Proj or Fun.
func (n *Node) Name() string { return n.name }

// IsCFG reports whether the node is a control-flow node.
func (n *Node) IsCFG() bool { return n.op.isCFG() || (n.op == OpConstant && n.con.IsCtrl()) }

// IsMultiHead reports whether the node merges several control paths.
func (n *Node) IsMultiHead() bool { return n.op.isMultiHead() }

// IsMultiTail reports whether the node's result is taken apart by projections.
func (n *Node) IsMultiTail() bool { return n.op.isMultiTail() }

// IsUnused reports whether nothing uses the node and nothing pins it.
func (n *Node) IsUnused() bool { return len(n.outs) == 0 }

// IsDead reports whether the node has been killed.
func (n *Node) IsDead() bool { return n.typ == nil && len(n.ins) == 0 && len(n.outs) == 0 }

func (n *Node) mustLive() {
	if n.IsDead() {
		fail(ErrCodeDeadNode, n, "operation on a killed node")
	}
}

func (n *Node) addUse(u *Node) { n.outs = append(n.outs, u) }

// delUse removes one use of u and reports whether n became unused.
func (n *Node) delUse(u *Node) bool {
	i := slices.Index(n.outs, u)
	if i < 0 {
		fail(ErrCodeBadGraph, n, "missing use edge from %s%d", u.op, u.id)
	}
	last := len(n.outs) - 1
	n.outs[i] = n.outs[last]
	n.outs[last] = nil
	n.outs = n.outs[:last]
	return len(n.outs) == 0
}

func (n *Node) touch() {
	n.g.stats.Mutations++
	if n.IsCFG() {
		n.g.cfgEpoch++
	}
}

// SetDef replaces input i with d and returns d. The old input is killed if
// that was its last use, and revisited otherwise.
func (n *Node) SetDef(i int, d *Node) *Node {
	n.mustLive()
	n.unlock()
	old := n.ins[i]
	if old == d {
		return d
	}
	if d != nil {
		d.mustLive()
		d.addUse(n)
	}
	n.ins[i] = d
	n.touch()
	if old != nil {
		if old.delUse(n) {
			old.Kill()
		} else {
			n.g.push(old)
		}
	}
	n.moveDepsToWorklist()
	return d
}

// AddDef appends d as a new input and returns d.
func (n *Node) AddDef(d *Node) *Node {
	n.mustLive()
	n.unlock()
	n.ins = append(n.ins, d)
	if d != nil {
		d.mustLive()
		d.addUse(n)
	}
	n.touch()
	return d
}

// InsertDef inserts d at slot i, shifting later inputs up.
func (n *Node) InsertDef(i int, d *Node) *Node {
	n.mustLive()
	n.unlock()
	n.ins = slices.Insert(n.ins, i, d)
	if d != nil {
		d.mustLive()
		d.addUse(n)
	}
	n.touch()
	return d
}

// DelDef removes input slot i. Merge nodes move their last input into the
// hole; paired Phis delete the same way so slots stay aligned. Other nodes
// keep the order of the remaining inputs.
func (n *Node) DelDef(i int) *Node {
	n.mustLive()
	n.unlock()
	old := n.ins[i]
	if n.op.variadic() {
		last := len(n.ins) - 1
		n.ins[i] = n.ins[last]
		n.ins[last] = nil
		n.ins = n.ins[:last]
	} else {
		n.ins = slices.Delete(n.ins, i, i+1)
	}
	n.touch()
	if old != nil {
		if old.delUse(n) {
			old.Kill()
		} else {
			n.g.push(old)
		}
	}
	n.moveDepsToWorklist()
	return n
}

// PopUntil drops trailing inputs until only k remain.
func (n *Node) PopUntil(k int) *Node {
	n.mustLive()
	n.unlock()
	for len(n.ins) > k {
		last := len(n.ins) - 1
		old := n.ins[last]
		n.ins[last] = nil
		n.ins = n.ins[:last]
		n.touch()
		if old != nil && old.delUse(n) {
			old.Kill()
		}
	}
	return n
}

// Kill releases every input of an unused node and marks it dead. Inputs
// whose last use disappears are killed recursively.
func (n *Node) Kill() {
	n.mustLive()
	if !n.IsUnused() {
		fail(ErrCodeStillUsed, n, "kill with %d uses", len(n.outs))
	}
	n.unlock()
	n.moveDepsToWorklist()
	n.typ = nil
	n.g.stats.Kills++
	n.touch()
	for len(n.ins) > 0 {
		last := len(n.ins) - 1
		old := n.ins[last]
		n.ins[last] = nil
		n.ins = n.ins[:last]
		if old != nil {
			n.g.push(old)
			if old.delUse(n) {
				old.Kill()
			}
		}
	}
}

// Subsume moves every use of n over to x, then kills n. x is pinned during
// the transfer so killing n cannot take x down with it.
func (n *Node) Subsume(x *Node) {
	if x == n {
		fail(ErrCodeBadGraph, n, "subsume by itself")
	}
	n.mustLive()
	x.mustLive()
	x.Keep()
	for len(n.outs) > 0 {
		last := len(n.outs) - 1
		use := n.outs[last]
		n.outs[last] = nil
		n.outs = n.outs[:last]
		if use == nil {
			fail(ErrCodeStillUsed, n, "subsume of a pinned node")
		}
		use.unlock()
		i := slices.Index(use.ins, n)
		use.ins[i] = x
		x.addUse(use)
		use.touch()
		n.g.pushAll(use.outs)
	}
	n.Kill()
	x.Unkeep()
}

// Keep pins n alive with a synthetic use.
func (n *Node) Keep() *Node {
	n.addUse(nil)
	return n
}

// Unkeep removes one Keep pin. The node is not killed even if it becomes unused.
func (n *Node) Unkeep() *Node {
	i := slices.Index(n.outs, nil)
	if i < 0 {
		fail(ErrCodeBadGraph, n, "unkeep without keep")
	}
	last := len(n.outs) - 1
	n.outs[i] = n.outs[last]
	n.outs[last] = nil
	n.outs = n.outs[:last]
	return n
}

func (n *Node) isKept() bool { return slices.Contains(n.outs, nil) }

// addDep registers n as a distant dependent of dep: n is revisited when
// dep's type changes. Direct neighbors are skipped since ordinary edge
// propagation already covers them. Returns dep.
func (n *Node) addDep(dep *Node) *Node {
	if dep == nil || dep == n || n.g.midAssert {
		return dep
	}
	if slices.Contains(dep.deps, n) || slices.Contains(dep.ins, n) || slices.Contains(dep.outs, n) {
		return dep
	}
	dep.deps = append(dep.deps, n)
	return dep
}

func (n *Node) moveDepsToWorklist() {
	if len(n.deps) == 0 {
		return
	}
	n.g.pushAll(n.deps)
	clear(n.deps)
	n.deps = n.deps[:0]
}

// Deps returns a copy of the distant dependents.
func (n *Node) Deps() []*Node { return slices.Clone(n.deps) }

// cproj finds the live CProj at slot idx of an If, or nil.
func (n *Node) cproj(idx int) *Node {
	for _, u := range n.outs {
		if u != nil && u.op == OpCProj && u.idx == idx {
			return u
		}
	}
	return nil
}

// allCons reports whether every non-control input is a constant. When one
// is not, dep is registered on it so dep is revisited if it folds later.
func (n *Node) allCons(dep *Node) bool {
	if n.op == OpPhi {
		r := n.ins[0]
		if !r.op.isRegion() {
			return false
		}
		dep.addDep(n)
		if r.inProgress() {
			return false
		}
	}
	for i := 1; i < len(n.ins); i++ {
		if !n.ins[i].typ.IsConstant() {
			dep.addDep(n.ins[i])
			return false
		}
	}
	return true
}
