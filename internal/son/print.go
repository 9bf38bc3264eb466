package son

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// String prints the node as op and id, e.g. "Add12", or "Con7(5)" for constants.
func (n *Node) String() string {
	if n == nil {
		return "_"
	}
	switch n.op {
	case OpConstant:
		return fmt.Sprintf("Con%d(%s)", n.id, n.con)
	case OpProj, OpCProj, OpParm:
		if n.name != "" {
			return fmt.Sprintf("%s%d[%s]", n.op, n.id, n.name)
		}
		return fmt.Sprintf("%s%d[%d]", n.op, n.id, n.idx)
	case OpFun, OpPhi:
		if n.name != "" {
			return fmt.Sprintf("%s%d[%s]", n.op, n.id, n.name)
		}
	}
	return fmt.Sprintf("%s%d", n.op, n.id)
}

// Dump writes one line per live node in id order: id, op, inputs and type.
func (g *Graph) Dump(w io.Writer) error {
	for _, n := range g.Nodes() {
		ins := make([]string, len(n.ins))
		for i, in := range n.ins {
			if in == nil {
				ins[i] = "_"
			} else {
				ins[i] = fmt.Sprint(in.id)
			}
		}
		if _, err := fmt.Fprintf(w, "%4d %-14s (%s) : %s\n", n.id, n, strings.Join(ins, " "), n.typ); err != nil {
			return err
		}
	}
	return nil
}

// Census returns one "Op:Type" entry per live node, sorted. It does not
// depend on node ids, so graphs optimized under different worklist orders
// can be compared with it.
func (g *Graph) Census() []string {
	var out []string
	for _, n := range g.Nodes() {
		out = append(out, n.op.String()+":"+n.typ.String())
	}
	slices.Sort(out)
	return out
}

// Count returns the number of live nodes with the given op.
func (g *Graph) Count(op Op) int {
	c := 0
	for _, n := range g.Nodes() {
		if n.op == op {
			c++
		}
	}
	return c
}
