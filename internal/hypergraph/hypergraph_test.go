package hypergraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorgfresser/htps-go/internal/params"
	"github.com/sorgfresser/htps-go/pkg/theorem"
)

func thm(uniqueString string) theorem.Theorem {
	return theorem.New(uniqueString, uniqueString, nil, nil, nil)
}

func tac(name string) theorem.Tactic {
	t, _ := theorem.NewTactic(name, true, 1)
	return t
}

func TestTrivialProofSolvesImmediately(t *testing.T) {
	g := New(thm("root"))
	exp, err := theorem.NewExpansion(thm("root"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("qed")},
		[][]theorem.Theorem{{}},
		[]float64{1.0},
	)
	require.NoError(t, err)

	g.AddExpansion(g.Root(), exp)

	assert.True(t, g.Get(g.Root()).Solved)
	assert.True(t, g.Get(g.Root()).IsExpanded)
}

func TestTwoStepProofPropagatesSolvedUpward(t *testing.T) {
	g := New(thm("root"))
	child := thm("child")

	exp, err := theorem.NewExpansion(thm("root"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("split")},
		[][]theorem.Theorem{{child}},
		[]float64{1.0},
	)
	require.NoError(t, err)
	g.AddExpansion(g.Root(), exp)

	childNode, childID := g.GetOrCreate(child)
	assert.False(t, childNode.Solved)

	childExp, err := theorem.NewExpansion(child, 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("qed")},
		[][]theorem.Theorem{{}},
		[]float64{1.0},
	)
	require.NoError(t, err)
	g.AddExpansion(childID, childExp)

	assert.True(t, g.Get(childID).Solved)
	assert.True(t, g.Get(g.Root()).Solved)
}

func TestDeadEndDoesNotFalselySolve(t *testing.T) {
	g := New(thm("root"))
	deadEnd := thm("dead_end")

	exp, err := theorem.NewExpansion(thm("root"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("only_path")},
		[][]theorem.Theorem{{deadEnd}},
		[]float64{1.0},
	)
	require.NoError(t, err)
	g.AddExpansion(g.Root(), exp)

	_, deadID := g.GetOrCreate(deadEnd)
	deadExp, err := theorem.NewExpansion(deadEnd, 0, 0, nil, nil, 0, nil, nil, nil)
	require.NoError(t, err)
	g.AddExpansion(deadID, deadExp)

	assert.True(t, g.Get(deadID).IsTerminal)
	assert.False(t, g.Get(deadID).Solved)
	assert.True(t, g.Get(g.Root()).IsTerminal)
	assert.False(t, g.Get(g.Root()).Solved)
}

func TestAlternativeTacticRescuesDeadEnd(t *testing.T) {
	g := New(thm("root"))
	deadEnd := thm("dead_end")
	goodChild := thm("good_child")

	exp, err := theorem.NewExpansion(thm("root"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("bad_path"), tac("good_path")},
		[][]theorem.Theorem{{deadEnd}, {goodChild}},
		[]float64{0.5, 0.5},
	)
	require.NoError(t, err)
	g.AddExpansion(g.Root(), exp)

	_, deadID := g.GetOrCreate(deadEnd)
	deadExp, _ := theorem.NewExpansion(deadEnd, 0, 0, nil, nil, 0, nil, nil, nil)
	g.AddExpansion(deadID, deadExp)
	assert.False(t, g.Get(g.Root()).IsTerminal)

	_, goodID := g.GetOrCreate(goodChild)
	goodExp, _ := theorem.NewExpansion(goodChild, 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("qed")}, [][]theorem.Theorem{{}}, []float64{1.0})
	g.AddExpansion(goodID, goodExp)

	assert.True(t, g.Get(g.Root()).Solved)
}

func TestCycleEdgeIsMaskedNotFatal(t *testing.T) {
	g := New(thm("root"))
	back := thm("root") // self-referencing child creates an immediate cycle

	exp, err := theorem.NewExpansion(thm("root"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("loop")},
		[][]theorem.Theorem{{back}},
		[]float64{1.0},
	)
	require.NoError(t, err)
	g.AddExpansion(g.Root(), exp)

	node := g.Get(g.Root())
	require.Len(t, node.Edges, 1)
	assert.True(t, node.Edges[0].IsCycle)
	assert.False(t, node.Solved)
}

func TestAddExpansionIsIdempotent(t *testing.T) {
	g := New(thm("root"))
	exp, _ := theorem.NewExpansion(thm("root"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("qed")}, [][]theorem.Theorem{{}}, []float64{1.0})

	g.AddExpansion(g.Root(), exp)
	g.AddExpansion(g.Root(), exp)

	assert.Len(t, g.Get(g.Root()).Edges, 1)
}

func TestAddExpansionDropsDuplicateTactics(t *testing.T) {
	g := New(thm("root"))
	childA := thm("a")
	childB := thm("b")

	exp, err := theorem.NewExpansion(thm("root"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("dup"), tac("dup")},
		[][]theorem.Theorem{{childA}, {childB}},
		[]float64{0.5, 0.5},
	)
	require.NoError(t, err)
	g.AddExpansion(g.Root(), exp)

	require.Len(t, g.Get(g.Root()).Edges, 1)
	assert.Equal(t, []NodeID{NodeID(1)}, g.Get(g.Root()).Edges[0].Children)
}

func TestMinimalProofPrefersCheaperMetric(t *testing.T) {
	g := New(thm("root"))
	cheapLeaf := thm("cheap")
	expensiveLeaf := thm("expensive")

	exp, err := theorem.NewExpansion(thm("root"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("via_expensive"), tac("via_cheap")},
		[][]theorem.Theorem{{expensiveLeaf}, {cheapLeaf}},
		[]float64{0.5, 0.5},
	)
	require.NoError(t, err)
	g.AddExpansion(g.Root(), exp)

	_, cheapID := g.GetOrCreate(cheapLeaf)
	cheapTac, _ := theorem.NewTactic("qed_cheap", true, 1)
	cheapExp, _ := theorem.NewExpansion(cheapLeaf, 0, 0, nil, nil, 0,
		[]theorem.Tactic{cheapTac}, [][]theorem.Theorem{{}}, []float64{1.0})
	g.AddExpansion(cheapID, cheapExp)

	_, expensiveID := g.GetOrCreate(expensiveLeaf)
	expensiveTac, _ := theorem.NewTactic("qed_expensive", true, 100)
	expensiveExp, _ := theorem.NewExpansion(expensiveLeaf, 0, 0, nil, nil, 0,
		[]theorem.Tactic{expensiveTac}, [][]theorem.Theorem{{}}, []float64{1.0})
	g.AddExpansion(expensiveID, expensiveExp)

	tree, ok := g.MinimalProof(g.Root(), params.MetricTime)
	require.True(t, ok)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "via_cheap", tree.Tactic)
	assert.True(t, g.Get(cheapID).InMinimalProof)
}

func TestMinimalProofSizeMetricCountsDistinctTheoremsNotOccurrences(t *testing.T) {
	g := New(thm("root"))
	dup := thm("dup")
	single := thm("single")
	inner := thm("inner")

	// via_dup reaches the same theorem twice: the subtree should count
	// {root, dup} = 2 distinct theorems, not 3 occurrences.
	// via_single reaches a chain root->single->inner: {root, single, inner} = 3.
	exp, err := theorem.NewExpansion(thm("root"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("via_dup"), tac("via_single")},
		[][]theorem.Theorem{{dup, dup}, {single}},
		[]float64{0.5, 0.5},
	)
	require.NoError(t, err)
	g.AddExpansion(g.Root(), exp)

	_, dupID := g.GetOrCreate(dup)
	dupExp, _ := theorem.NewExpansion(dup, 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("qed_dup")}, [][]theorem.Theorem{{}}, []float64{1.0})
	g.AddExpansion(dupID, dupExp)

	_, singleID := g.GetOrCreate(single)
	singleExp, _ := theorem.NewExpansion(single, 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("via_inner")}, [][]theorem.Theorem{{inner}}, []float64{1.0})
	g.AddExpansion(singleID, singleExp)

	_, innerID := g.GetOrCreate(inner)
	innerExp, _ := theorem.NewExpansion(inner, 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("qed_inner")}, [][]theorem.Theorem{{}}, []float64{1.0})
	g.AddExpansion(innerID, innerExp)

	tree, ok := g.MinimalProof(g.Root(), params.MetricSize)
	require.True(t, ok)
	assert.Equal(t, "via_dup", tree.Tactic)
}

func TestMinimalProofFalseWhenUnsolved(t *testing.T) {
	g := New(thm("root"))
	_, ok := g.MinimalProof(g.Root(), params.MetricSize)
	assert.False(t, ok)
}

func TestParentEdgeCountTracksFanIn(t *testing.T) {
	g := New(thm("root"))
	shared := thm("shared")

	exp, err := theorem.NewExpansion(thm("root"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("path_a"), tac("path_b")},
		[][]theorem.Theorem{{shared}, {shared}},
		[]float64{0.5, 0.5},
	)
	require.NoError(t, err)
	g.AddExpansion(g.Root(), exp)

	_, sharedID := g.GetOrCreate(shared)
	assert.Equal(t, 2, g.ParentEdgeCount(sharedID))
}
