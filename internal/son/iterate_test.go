package son

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seanodes/internal/types"
	"github.com/roach88/seanodes/internal/worklist"
)

// deadBranch builds main(x) { if (0) v = (x:[0,10]) else v = 7; return v }
// and returns the pieces the tests look at.
func deadBranch(g *Graph) (iff, tproj, cast, ret *Node) {
	fun, p := argsFun(g, 1)
	iff, tproj, fproj := g.If(fun, g.Int(0))
	cast = g.Cast(tproj, p[0], g.L.IntRange(0, 10))
	r := g.Region(tproj, fproj)
	phi := g.Phi(r, "v", g.L.IntBot, cast, g.Int(7))
	ret = g.Return(fun, r, fun.Parm(ParmMem), phi)
	return iff, tproj, cast, ret
}

// redundantAdds builds main(x, y, z, w) { return (x+y)*z ^ (x+y)*w }.
func redundantAdds(g *Graph) (a1, a2, ret *Node) {
	fun, p := argsFun(g, 4)
	a1 = g.Add(p[0], p[1])
	a2 = g.Add(p[0], p[1])
	m1 := g.Mul(a1, p[2])
	m2 := g.Mul(a2, p[3])
	ret = g.Return(fun, fun, fun.Parm(ParmMem), g.Binary(OpXor, m1, m2))
	return a1, a2, ret
}

// countingLoop builds main(n) { i = 0; while (i < n) i = i + 1; return i }.
func countingLoop(g *Graph) (loop, phi, ret *Node) {
	fun, p := argsFun(g, 1)
	loop = g.Loop(fun)
	phi = g.Phi(loop, "i", g.L.IntBot, g.Int(0), nil)
	_, body, exit := g.If(loop, g.LT(phi, p[0]))
	g.Close(phi, g.Add(phi, g.Int(1)))
	g.Close(loop, body)
	ret = g.Return(fun, exit, fun.Parm(ParmMem), phi)
	return loop, phi, ret
}

// assertNoDuplicates checks that no two live value-numbered nodes are
// structurally equal.
func assertNoDuplicates(t *testing.T, g *Graph) {
	t.Helper()
	live := g.Nodes()
	for i, a := range live {
		if !a.op.hashed() {
			continue
		}
		for _, b := range live[i+1:] {
			if b.op.hashed() && equal(a, b) {
				t.Errorf("%s and %s are structurally equal", a, b)
			}
		}
	}
}

// TestIterate_DeadBranch tests that a constant-false test removes the true
// side, the Cast under it and the merge.
func TestIterate_DeadBranch(t *testing.T) {
	g := newTestGraph(WithoutConstructionPeepholes())
	iff, tproj, cast, ret := deadBranch(g)
	fun := ret.Fun()

	assert.Same(t, g.L.IfFalse, iff.Type())
	assert.Same(t, g.L.XCtrl, tproj.Type())
	assert.False(t, cast.IsDead())

	require.NoError(t, g.RunToFixpoint())

	assert.True(t, cast.IsDead())
	assert.True(t, iff.IsDead())
	assert.Same(t, fun, ret.In(0), "the region folds onto the function entry")
	assert.Same(t, g.L.Int(7), ret.In(2).Type())
	assert.Zero(t, g.Count(OpRegion))
	assert.Zero(t, g.Count(OpPhi))
	assertNoDuplicates(t, g)
}

// TestIterate_DeadPathPhi tests that a Phi whose only live path carries one
// value becomes that value.
func TestIterate_DeadPathPhi(t *testing.T) {
	g := newTestGraph(WithoutConstructionPeepholes())
	fun, p := argsFun(g, 1)
	_, tproj, fproj := g.If(fun, g.Int(0))
	r := g.Region(tproj, fproj)
	phi := g.Phi(r, "v", g.L.IntBot, g.Int(1), p[0])
	ret := g.Return(fun, r, fun.Parm(ParmMem), phi)

	require.NoError(t, g.RunToFixpoint())

	assert.True(t, phi.IsDead())
	assert.Same(t, p[0], ret.In(2))
	assert.Same(t, fun, ret.In(0))
}

// TestIterate_DeadPathPhiAtConstruction tests the same fold done by the
// construction peepholes.
func TestIterate_DeadPathPhiAtConstruction(t *testing.T) {
	g := newTestGraph()
	fun, p := argsFun(g, 1)
	_, tproj, fproj := g.If(fun, g.Int(0))
	require.Equal(t, OpConstant, tproj.Op(), "the dead side folds to a control constant")
	require.Same(t, fun, fproj, "the live side folds onto the If's control")

	r := g.Region(tproj, fproj)
	v := g.Phi(r, "v", g.L.IntBot, g.Int(1), p[0])
	assert.Same(t, p[0], v)
	require.False(t, r.IsDead(), "the region outlives its folded Phi")

	ret := g.Return(fun, r, fun.Parm(ParmMem), v)
	require.NoError(t, g.RunToFixpoint())
	assert.Same(t, fun, ret.In(0))
}

// TestIterate_ValueNumbering tests that the fixpoint merges two identical
// adds built without construction peepholes.
func TestIterate_ValueNumbering(t *testing.T) {
	g := newTestGraph(WithoutConstructionPeepholes())
	a1, a2, _ := redundantAdds(g)
	require.Equal(t, 2, g.Count(OpAdd))

	require.NoError(t, g.RunToFixpoint())

	assert.Equal(t, 1, g.Count(OpAdd))
	assert.True(t, a1.IsDead() != a2.IsDead(), "exactly one add survives")
	assert.Equal(t, 2, g.Count(OpMul))
	assertNoDuplicates(t, g)
}

// TestIterate_Loop tests that a counting loop survives the fixpoint with a
// widened induction variable.
func TestIterate_Loop(t *testing.T) {
	g := newTestGraph()
	loop, phi, ret := countingLoop(g)

	require.NoError(t, g.RunToFixpoint())

	assert.False(t, loop.IsDead())
	assert.False(t, phi.IsDead())
	assert.Same(t, phi, ret.In(2))
	assert.Same(t, g.L.IntBot, phi.Type())
	assert.Equal(t, 1, g.Count(OpLoop))
}

// TestIterate_EveryStepValidation tests that the stability check holds after
// every productive step.
func TestIterate_EveryStepValidation(t *testing.T) {
	builds := map[string]func(*Graph){
		"dead branch":    func(g *Graph) { deadBranch(g) },
		"redundant adds": func(g *Graph) { redundantAdds(g) },
		"counting loop":  func(g *Graph) { countingLoop(g) },
	}
	for name, build := range builds {
		t.Run(name, func(t *testing.T) {
			g := newTestGraph(WithoutConstructionPeepholes(), WithValidation(ValidateEveryStep))
			build(g)

			require.NoError(t, g.RunToFixpoint())
			assert.Greater(t, g.Stats().Validations, 1)
		})
	}
}

// TestIterate_Quota tests that a pass stops with a QuotaError when it runs
// out of pops.
func TestIterate_Quota(t *testing.T) {
	g := newTestGraph(WithoutConstructionPeepholes(), WithMaxIterations(3))
	redundantAdds(g)

	err := g.RunToFixpoint()

	require.Error(t, err)
	assert.True(t, IsQuotaError(err))
	var qe *QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, string(PassPessimistic), qe.Pass)
	assert.Equal(t, 3, qe.Iterations)
	assert.Equal(t, 3, qe.Max)
	assert.Contains(t, err.Error(), "QUOTA_EXCEEDED")
}

// TestIterate_Idempotent tests that a second fixpoint changes nothing.
func TestIterate_Idempotent(t *testing.T) {
	builds := []func(*Graph){
		func(g *Graph) { deadBranch(g) },
		func(g *Graph) { redundantAdds(g) },
		func(g *Graph) { countingLoop(g) },
	}
	for i, build := range builds {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			g := newTestGraph(WithoutConstructionPeepholes())
			build(g)
			require.NoError(t, g.RunToFixpoint())
			census := g.Census()
			mutations := g.Stats().Mutations

			require.NoError(t, g.RunToFixpoint())

			assert.Equal(t, census, g.Census())
			assert.Equal(t, mutations, g.Stats().Mutations)
		})
	}
}

// TestIterate_Confluence tests that every pop order reaches the same graph.
func TestIterate_Confluence(t *testing.T) {
	builds := map[string]func(*Graph){
		"dead branch":    func(g *Graph) { deadBranch(g) },
		"redundant adds": func(g *Graph) { redundantAdds(g) },
		"counting loop":  func(g *Graph) { countingLoop(g) },
	}
	for name, build := range builds {
		t.Run(name, func(t *testing.T) {
			ref := newTestGraph(WithoutConstructionPeepholes(), WithPopPolicy(worklist.FIFO))
			build(ref)
			require.NoError(t, ref.RunToFixpoint())
			want := ref.Census()

			for seed := uint64(1); seed <= 16; seed++ {
				g := newTestGraph(WithoutConstructionPeepholes(), WithSeed(seed))
				build(g)
				require.NoError(t, g.RunToFixpoint(), "seed %d", seed)
				assert.Equal(t, want, g.Census(), "seed %d", seed)
			}

			g := newTestGraph(WithoutConstructionPeepholes(), WithPopPolicy(worklist.LIFO))
			build(g)
			require.NoError(t, g.RunToFixpoint())
			assert.Equal(t, want, g.Census(), "lifo")
		})
	}
}

// TestIterate_MonotoneObserver tests that every observed type change in the
// pessimistic pass moves up the lattice.
func TestIterate_MonotoneObserver(t *testing.T) {
	var changes int
	var g *Graph
	g = newTestGraph(WithoutConstructionPeepholes(), WithTypeObserver(func(pass Pass, n *Node, old, new *types.Type) {
		if old == nil {
			return
		}
		changes++
		assert.True(t, g.L.Isa(new, old), "%s fell from %s to %s in %s", n, old, new, pass)
	}))
	deadBranch(g)
	countingLoop(g)

	require.NoError(t, g.RunToFixpoint())
	assert.Positive(t, changes)
}

// TestIterate_ProgressOnList tests the mid-pass stability check.
func TestIterate_ProgressOnList(t *testing.T) {
	g := newTestGraph(WithoutConstructionPeepholes())
	sum := g.Add(g.Int(2), g.Int(3))
	fun := g.NewFunction("main", g.L.IntBot)
	g.Return(fun, fun, fun.Parm(ParmMem), sum)

	assert.Nil(t, g.ProgressOnList(), "everything pending is on the worklist")

	g.work.Clear()
	assert.Same(t, sum, g.ProgressOnList(), "the unfolded add is off the worklist")
	assert.False(t, sum.IsDead(), "the check does not rewrite")

	require.NoError(t, g.RunToFixpoint())
	assert.Nil(t, g.ProgressOnList())
	assert.Zero(t, g.WorkLen())
}

// TestIterate_NotStable tests that the end-of-pass check reports a node
// left off the worklist.
func TestIterate_NotStable(t *testing.T) {
	g := newTestGraph(WithoutConstructionPeepholes())
	sum := g.Add(g.Int(2), g.Int(3))
	fun := g.NewFunction("main", g.L.IntBot)
	g.Return(fun, fun, fun.Parm(ParmMem), sum)
	g.work.Clear()

	err := catch(g.mustStable)

	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrCodeNotStable, ie.Code)
	assert.Equal(t, sum.ID(), ie.NodeID)
}
