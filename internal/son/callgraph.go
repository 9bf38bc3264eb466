package son

import (
	"cmp"
	"slices"
)

// CallEdge is one linked call site.
type CallEdge struct {
	Caller int `json:"caller"` // fidx of the function holding the call, 0 at top level
	Callee int `json:"callee"` // fidx of the linked function
	Call   int `json:"call"`   // node id of the Call
}

// CallGraph returns every linked call site, ordered by caller, callee and call id.
func (g *Graph) CallGraph() []CallEdge {
	var edges []CallEdge
	for _, fun := range g.Funs() {
		for _, c := range fun.Callers() {
			caller := 0
			if home := enclosingFun(c); home != nil {
				caller = home.Fidx()
			}
			edges = append(edges, CallEdge{Caller: caller, Callee: fun.Fidx(), Call: c.id})
		}
	}
	sortEdges(edges)
	return edges
}

// enclosingFun follows control inputs up to the function a node lives in.
func enclosingFun(n *Node) *Node {
	for c, steps := n, 0; c != nil && steps < len(n.g.nodes); steps++ {
		switch {
		case c.op == OpFun:
			return c
		case c.op == OpStart || len(c.ins) == 0:
			return nil
		case c.op.isRegion():
			c = c.ins[1]
		default:
			c = c.ins[0]
		}
	}
	return nil
}

func sortEdges(edges []CallEdge) {
	slices.SortFunc(edges, func(a, b CallEdge) int {
		if c := cmp.Compare(a.Caller, b.Caller); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Callee, b.Callee); c != 0 {
			return c
		}
		return cmp.Compare(a.Call, b.Call)
	})
}

// RecursiveGroups returns the strongly connected components of the call
// graph that form a cycle: several mutually recursive functions, or one
// function calling itself. Each group lists fidxs in ascending order and
// groups are ordered by their smallest fidx.
func RecursiveGroups(edges []CallEdge) [][]int {
	graph := make(map[int][]int)
	var order []int
	self := make(map[int]bool)
	seen := make(map[int]bool)
	note := func(f int) {
		if !seen[f] {
			seen[f] = true
			order = append(order, f)
		}
	}
	for _, e := range edges {
		note(e.Caller)
		note(e.Callee)
		graph[e.Caller] = append(graph[e.Caller], e.Callee)
		if e.Caller == e.Callee {
			self[e.Caller] = true
		}
	}
	slices.Sort(order)

	var groups [][]int
	for _, scc := range tarjanSCC(order, graph) {
		if len(scc) > 1 || self[scc[0]] {
			slices.Sort(scc)
			groups = append(groups, scc)
		}
	}
	slices.SortFunc(groups, func(a, b []int) int { return cmp.Compare(a[0], b[0]) })
	return groups
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm,
// visiting roots in the given order.
func tarjanSCC(order []int, graph map[int][]int) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make(map[int]int)
		lowlink = make(map[int]int)
		onStack = make(map[int]bool)
		sccs    [][]int
	)

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, v := range order {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}
	return sccs
}
