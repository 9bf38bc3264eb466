package son

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seanodes/internal/types"
)

// callerCallee builds f(a) { return a } and main(x) { return f(arg) } where
// arg(main) picks the argument. f is named, so it is public unless the
// whole world is known.
func callerCallee(g *Graph, name string, arg func(main *Node) *Node) (main, f *Node, site CallSite) {
	f = g.NewFunction(name, g.L.IntBot, g.L.IntBot)
	g.Return(f, f, f.Parm(ParmMem), f.Parm(ParmArg0))

	main = g.NewFunction("main", g.L.IntBot, g.L.IntBot)
	site = g.Call(main, main.Parm(ParmMem), g.FunPtr(f), arg(main))
	g.Return(main, site.Ctrl, site.Mem, site.Ret)
	return main, f, site
}

func mainArg(main *Node) *Node { return main.Parm(ParmArg0) }

// TestOpto_RequiresPessimistic tests the pass ordering error.
func TestOpto_RequiresPessimistic(t *testing.T) {
	g := newTestGraph()
	callerCallee(g, "f", mainArg)

	assert.ErrorIs(t, g.RunOptimistic(true), ErrPessimisticFirst)
}

// TestOpto_EagerLinking tests that the pessimistic pass links a call whose
// target is a known function pointer.
func TestOpto_EagerLinking(t *testing.T) {
	g := newTestGraph()
	main, f, site := callerCallee(g, "f", mainArg)

	require.NoError(t, g.RunToFixpoint())

	assert.Equal(t, []*Node{site.Call}, f.Callers())
	assert.True(t, f.UnknownCallers())
	assert.Equal(t, 1, g.Stats().Links)
	assert.Equal(t, []CallEdge{{Caller: main.Fidx(), Callee: f.Fidx(), Call: site.Call.ID()}}, g.CallGraph())
	assert.Same(t, g.L.IntBot, f.Parm(ParmArg0).Type())
	assert.Same(t, g.L.IntBot, main.Ret().In(2).Type())
}

// TestOpto_PrivateCallee tests that a private function called only from
// main sees exactly main's argument.
func TestOpto_PrivateCallee(t *testing.T) {
	g := newTestGraph()
	main, f, site := callerCallee(g, "f", mainArg)
	require.NoError(t, g.RunToFixpoint())

	require.NoError(t, g.RunOptimistic(true))

	edges := g.CallGraph()
	require.Len(t, edges, 1)
	assert.Equal(t, main.Fidx(), edges[0].Caller)
	assert.Equal(t, f.Fidx(), edges[0].Callee)
	assert.Equal(t, site.Call.ID(), edges[0].Call)

	assert.False(t, f.UnknownCallers(), "the unknown-caller path is gone")
	assert.True(t, main.UnknownCallers(), "main stays public")
	parm := f.Parm(ParmArg0)
	require.NotNil(t, parm)
	assert.Same(t, g.L.IntBot, parm.Type(), "the argument is main's unknown input, not Top")
	assert.NotContains(t, g.Stop().Inputs(), f.Ret())
	assert.Positive(t, g.Stats().Optimistic)
}

// TestOpto_ConstantArgument tests interprocedural constant propagation
// through a private callee.
func TestOpto_ConstantArgument(t *testing.T) {
	g := newTestGraph()
	main, f, _ := callerCallee(g, "f", func(*Node) *Node { return g.Int(5) })
	require.NoError(t, g.RunToFixpoint())
	require.Same(t, g.L.IntBot, main.Ret().In(2).Type(), "f may have other callers")

	require.NoError(t, g.RunOptimistic(true))

	assert.Same(t, g.L.Int(5), main.Ret().In(2).Type())
	assert.Equal(t, OpConstant, main.Ret().In(2).Op())
	assert.Equal(t, OpConstant, f.Ret().In(2).Op(), "the callee's Parm folds too")
}

// TestOpto_PublicCallee tests that an open-world named function keeps its
// declared argument type.
func TestOpto_PublicCallee(t *testing.T) {
	g := newTestGraph()
	main, f, _ := callerCallee(g, "f", func(*Node) *Node { return g.Int(5) })
	require.NoError(t, g.RunToFixpoint())

	require.NoError(t, g.RunOptimistic(false))

	assert.True(t, f.UnknownCallers())
	assert.Same(t, g.L.IntBot, f.Parm(ParmArg0).Type())
	assert.Same(t, g.L.IntBot, main.Ret().In(2).Type())
	assert.Len(t, g.CallGraph(), 1)
}

// TestOpto_AnonymousIsPrivate tests that an anonymous function loses its
// unknown callers even in an open world.
func TestOpto_AnonymousIsPrivate(t *testing.T) {
	g := newTestGraph()
	main, f, _ := callerCallee(g, "", func(*Node) *Node { return g.Int(5) })
	require.NoError(t, g.RunToFixpoint())

	require.NoError(t, g.RunOptimistic(false))

	assert.False(t, f.UnknownCallers())
	assert.Same(t, g.L.Int(5), main.Ret().In(2).Type())
}

// TestOpto_IsPublic tests the visibility rule.
func TestOpto_IsPublic(t *testing.T) {
	g := newTestGraph()
	main := g.NewFunction("main", g.L.IntBot)
	named := g.NewFunction("helper", g.L.IntBot)
	anon := g.NewFunction("", g.L.IntBot)

	assert.True(t, main.IsPublic(true))
	assert.True(t, main.IsPublic(false))
	assert.False(t, named.IsPublic(true))
	assert.True(t, named.IsPublic(false))
	assert.False(t, anon.IsPublic(true))
	assert.False(t, anon.IsPublic(false))
}

// TestOpto_UnreachableCall tests that a call under a dead branch is never
// linked by the optimistic pass.
func TestOpto_UnreachableCall(t *testing.T) {
	g := newTestGraph()
	f := g.NewFunction("f", g.L.IntBot, g.L.IntBot)
	g.Return(f, f, f.Parm(ParmMem), f.Parm(ParmArg0))

	main, p := argsFun(g, 1)
	small := g.Cast(nil, p[0], g.L.IntRange(0, 10))
	_, never, always := g.If(main, g.LT(small, g.Int(0)))
	site := g.Call(never, main.Parm(ParmMem), g.FunPtr(f), g.Int(1))
	r := g.Region(site.Ctrl, always)
	v := g.Phi(r, "v", g.L.IntBot, site.Ret, g.Int(2))
	g.Return(main, r, main.Parm(ParmMem), v)

	require.NoError(t, g.RunToFixpoint())
	require.NoError(t, g.RunOptimistic(true))

	assert.Empty(t, g.CallGraph())
	assert.Same(t, g.L.Int(2), main.Ret().In(2).Type())
}

// TestOpto_DeadCallPrivateCallee tests a whole-world run where the only
// call to a private function sits under a branch the fixpoint proves dead.
func TestOpto_DeadCallPrivateCallee(t *testing.T) {
	g := newTestGraph(WithoutConstructionPeepholes())
	f := g.NewFunction("f", g.L.IntBot, g.L.IntBot)
	g.Return(f, f, f.Parm(ParmMem), f.Parm(ParmArg0))

	main, p := argsFun(g, 1)
	_, always, never := g.If(main, g.EQ(p[0], p[0]))
	site := g.Call(never, main.Parm(ParmMem), g.FunPtr(f), g.Int(3))
	r := g.Region(always, site.Ctrl)
	mem := g.Phi(r, "$mem", g.L.MemBot, main.Parm(ParmMem), site.Mem)
	v := g.Phi(r, "v", g.L.IntBot, g.Int(1), site.Ret)
	g.Return(main, r, mem, v)

	require.NoError(t, g.RunToFixpoint())
	require.NoError(t, g.RunOptimistic(true))

	assert.Empty(t, g.CallGraph())
	assert.False(t, f.UnknownCallers())
	assert.Same(t, g.L.Int(1), main.Ret().In(2).Type())
	assert.Equal(t, OpConstant, main.Ret().In(2).Op())
}

// TestOpto_PhiMergedFunPtr tests linking through a function pointer merged
// by a Phi that folds while the graph is built.
func TestOpto_PhiMergedFunPtr(t *testing.T) {
	g := newTestGraph()
	f := g.NewFunction("f", g.L.IntBot, g.L.IntBot)
	g.Return(f, f, f.Parm(ParmMem), f.Parm(ParmArg0))

	main, p := argsFun(g, 1)
	_, tproj, fproj := g.If(main, g.LT(p[0], g.Int(0)))
	r := g.Region(tproj, fproj)
	fp := g.Phi(r, "fp", f.Con(), g.FunPtr(f), g.FunPtr(f))
	require.Equal(t, OpConstant, fp.Op(), "a Phi of one value folds at construction")
	require.False(t, r.IsDead())

	site := g.Call(r, main.Parm(ParmMem), fp, p[0])
	g.Return(main, site.Ctrl, site.Mem, site.Ret)
	require.NoError(t, g.RunToFixpoint())

	require.NoError(t, g.RunOptimistic(true))

	edges := g.CallGraph()
	require.Len(t, edges, 1)
	assert.Equal(t, main.Fidx(), edges[0].Caller)
	assert.Equal(t, f.Fidx(), edges[0].Callee)
	assert.False(t, f.UnknownCallers())
	assert.Same(t, g.L.IntBot, f.Parm(ParmArg0).Type())
}

// TestOpto_Loop tests that the optimistic pass settles a loop Phi at or
// above its pessimistic type.
func TestOpto_Loop(t *testing.T) {
	g := newTestGraph()
	loop, phi, ret := countingLoop(g)
	require.NoError(t, g.RunToFixpoint())

	require.NoError(t, g.RunOptimistic(true))

	assert.False(t, loop.IsDead())
	assert.Same(t, phi, ret.In(2))
	assert.True(t, g.L.Isa(phi.Type(), g.L.IntBot))
}

// TestOpto_MonotoneObserver tests that optimistic types only fall, starting
// from Top, and stay at or above their pessimistic type.
func TestOpto_MonotoneObserver(t *testing.T) {
	var g *Graph
	pess := map[*Node]*types.Type{}
	optimistic := 0
	g = newTestGraph(WithTypeObserver(func(pass Pass, n *Node, old, new *types.Type) {
		switch pass {
		case PassOptimistic:
			optimistic++
			assert.True(t, g.L.Isa(old, new), "%s rose from %s to %s", n, old, new)
			if p, ok := pess[n]; ok {
				assert.True(t, g.L.Isa(new, p), "%s at %s is below %s", n, new, p)
			}
		case PassPessimistic, PassBuild:
			if old != nil {
				assert.True(t, g.L.Isa(new, old), "%s fell from %s to %s", n, old, new)
			}
		}
	}))
	callerCallee(g, "f", func(*Node) *Node { return g.Int(5) })
	require.NoError(t, g.RunToFixpoint())
	for _, n := range g.Nodes() {
		pess[n] = n.Type()
	}

	require.NoError(t, g.RunOptimistic(true))
	assert.Positive(t, optimistic)
}

// TestCallGraph_RecursiveGroups tests cycle detection over call edges.
func TestCallGraph_RecursiveGroups(t *testing.T) {
	tests := []struct {
		name  string
		edges []CallEdge
		want  [][]int
	}{
		{"empty", nil, nil},
		{"chain", []CallEdge{{Caller: 1, Callee: 2}, {Caller: 2, Callee: 3}}, nil},
		{"self", []CallEdge{{Caller: 3, Callee: 3}}, [][]int{{3}}},
		{
			"mutual and self",
			[]CallEdge{{Caller: 2, Callee: 1}, {Caller: 1, Callee: 2}, {Caller: 1, Callee: 4}, {Caller: 4, Callee: 4}},
			[][]int{{1, 2}, {4}},
		},
		{
			"three cycle",
			[]CallEdge{{Caller: 5, Callee: 6}, {Caller: 6, Callee: 7}, {Caller: 7, Callee: 5}, {Caller: 0, Callee: 5}},
			[][]int{{5, 6, 7}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecursiveGroups(tt.edges))
		})
	}
}

// TestCallGraph_SelfRecursion tests that a function calling itself is linked
// and reported as a recursive group.
func TestCallGraph_SelfRecursion(t *testing.T) {
	g := newTestGraph()
	f := g.NewFunction("f", g.L.IntBot, g.L.IntBot)
	site := g.Call(f, f.Parm(ParmMem), g.FunPtr(f), f.Parm(ParmArg0))
	g.Return(f, site.Ctrl, site.Mem, site.Ret)

	require.NoError(t, g.RunToFixpoint())

	edges := g.CallGraph()
	require.Len(t, edges, 1)
	assert.Equal(t, f.Fidx(), edges[0].Caller)
	assert.Equal(t, f.Fidx(), edges[0].Callee)
	assert.Equal(t, [][]int{{f.Fidx()}}, RecursiveGroups(edges))
}
