package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorgfresser/htps-go/internal/params"
	"github.com/sorgfresser/htps-go/pkg/theorem"
)

func thm(s string) theorem.Theorem { return theorem.New(s, s, nil, nil, nil) }

func tac(name string, duration int) theorem.Tactic {
	t, _ := theorem.NewTactic(name, true, duration)
	return t
}

func TestTrivialProofTerminatesProven(t *testing.T) {
	d, err := New(thm("R"), Default())
	require.NoError(t, err)

	leaves := d.TheoremsToExpand()
	require.Len(t, leaves, 1)
	assert.Equal(t, "R", leaves[0].UniqueString)

	exp, err := theorem.NewExpansion(thm("R"), 0, 0, nil, nil, 0.0,
		[]theorem.Tactic{tac("t1", 0)}, [][]theorem.Theorem{{}}, []float64{1.0})
	require.NoError(t, err)

	d.ExpandAndBackup([]theorem.EnvExpansion{exp})

	assert.True(t, d.IsDone())
	assert.True(t, d.Proven())
	assert.Equal(t, ReasonProven, d.Reason())

	proof, err := d.GetResult()
	require.NoError(t, err)
	require.NotNil(t, proof.Proof)
	assert.Equal(t, "t1", proof.Proof.Tactic)
	assert.Empty(t, proof.Proof.Children)
}

func TestTwoStepProofYieldsExpectedSampleCounts(t *testing.T) {
	d, err := New(thm("R"), Default())
	require.NoError(t, err)

	leaves := d.TheoremsToExpand()
	require.Len(t, leaves, 1)

	expR, err := theorem.NewExpansion(thm("R"), 0, 0, nil,
		[]theorem.EnvEffect{{Goal: thm("R"), Tactic: tac("tA", 1), Children: []theorem.Theorem{thm("A")}}},
		-0.5, []theorem.Tactic{tac("tA", 1)}, [][]theorem.Theorem{{thm("A")}}, []float64{1.0})
	require.NoError(t, err)
	d.ExpandAndBackup([]theorem.EnvExpansion{expR})
	assert.False(t, d.IsDone())

	leaves = d.TheoremsToExpand()
	require.Len(t, leaves, 1)
	assert.Equal(t, "A", leaves[0].UniqueString)

	expA, err := theorem.NewExpansion(thm("A"), 0, 0, nil,
		[]theorem.EnvEffect{{Goal: thm("A"), Tactic: tac("tA2", 1), Children: nil}},
		-0.1, []theorem.Tactic{tac("tA2", 1)}, [][]theorem.Theorem{{}}, []float64{1.0})
	require.NoError(t, err)
	d.ExpandAndBackup([]theorem.EnvExpansion{expA})

	require.True(t, d.IsDone())
	assert.True(t, d.Proven())

	result, err := d.GetResult()
	require.NoError(t, err)
	assert.Len(t, result.CriticSamples, 2)
	assert.Len(t, result.TacticSamples, 2)
	assert.Len(t, result.EffectSamples, 2)
}

func TestAlternativeTacticWithDeadEndUsesSurvivingMinimalProof(t *testing.T) {
	d, err := New(thm("R"), Default())
	require.NoError(t, err)

	d.TheoremsToExpand()
	exp, err := theorem.NewExpansion(thm("R"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("tA", 1), tac("tB", 1)},
		[][]theorem.Theorem{{thm("A")}, {thm("B")}},
		[]float64{0.5, 0.5},
	)
	require.NoError(t, err)
	d.ExpandAndBackup([]theorem.EnvExpansion{exp})

	for !d.IsDone() {
		leaves := d.TheoremsToExpand()
		if len(leaves) == 0 {
			break
		}
		var batch []theorem.EnvExpansion
		for _, l := range leaves {
			switch l.UniqueString {
			case "A":
				e, _ := theorem.NewExpansion(l, 0, 0, nil, nil, 0,
					[]theorem.Tactic{tac("qed", 1)}, [][]theorem.Theorem{{}}, []float64{1.0})
				batch = append(batch, e)
			case "B":
				batch = append(batch, theorem.NewErrorExpansion(l, "tactic failed"))
			}
		}
		d.ExpandAndBackup(batch)
	}

	require.True(t, d.IsDone())
	assert.True(t, d.Proven())

	result, err := d.GetResult()
	require.NoError(t, err)
	require.NotNil(t, result.Proof)
	assert.Equal(t, "tA", result.Proof.Tactic)
}

func TestSelfCycleTerminatesUnprovable(t *testing.T) {
	d, err := New(thm("R"), Default())
	require.NoError(t, err)

	d.TheoremsToExpand()
	exp, err := theorem.NewExpansion(thm("R"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("tC", 1)},
		[][]theorem.Theorem{{thm("R")}},
		[]float64{1.0},
	)
	require.NoError(t, err)
	d.ExpandAndBackup([]theorem.EnvExpansion{exp})

	assert.True(t, d.IsDone())
	assert.False(t, d.Proven())
	assert.Equal(t, ReasonExhausted, d.Reason())
}

func TestExpandAndBackupIsIdempotentOnSecondSubmission(t *testing.T) {
	d, err := New(thm("R"), Default())
	require.NoError(t, err)

	d.TheoremsToExpand()
	exp, err := theorem.NewExpansion(thm("R"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("t1", 0)}, [][]theorem.Theorem{{}}, []float64{1.0})
	require.NoError(t, err)

	d.ExpandAndBackup([]theorem.EnvExpansion{exp})
	require.True(t, d.IsDone())

	d.ExpandAndBackup([]theorem.EnvExpansion{exp})
	assert.True(t, d.IsDone())
	assert.True(t, d.Proven())
}

func TestEmptyBatchIsNoOp(t *testing.T) {
	d, err := New(thm("R"), Default())
	require.NoError(t, err)

	d.TheoremsToExpand()
	d.ExpandAndBackup(nil)
	assert.False(t, d.IsDone())
}

func TestGetResultBeforeDoneIsRuntimeError(t *testing.T) {
	d, err := New(thm("R"), Default())
	require.NoError(t, err)

	_, err = d.GetResult()
	require.Error(t, err)
}

func TestVirtualLossFullyReversedAfterBackup(t *testing.T) {
	p := Default()
	p.NumExpansions = 1
	p.SuccExpansions = 1
	d, err := New(thm("R"), p)
	require.NoError(t, err)

	d.TheoremsToExpand()
	exp, err := theorem.NewExpansion(thm("R"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("t1", 0)}, [][]theorem.Theorem{{thm("A")}}, []float64{1.0})
	require.NoError(t, err)
	d.ExpandAndBackup([]theorem.EnvExpansion{exp})

	// The next descent goes through the root's new edge to A.
	leaves := d.TheoremsToExpand()
	require.Len(t, leaves, 1)
	edge := d.graph.Get(d.graph.Root()).Edges[0]
	require.Equal(t, 1, edge.VirtualCount)

	expA, err := theorem.NewExpansion(thm("A"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("t2", 0)}, [][]theorem.Theorem{{}}, []float64{1.0})
	require.NoError(t, err)
	d.ExpandAndBackup([]theorem.EnvExpansion{expA})

	assert.Equal(t, 0, edge.VirtualCount)
	assert.Equal(t, 1, edge.N)
}

func TestInvalidParamsRejected(t *testing.T) {
	p := Default()
	p.PolicyTemperature = 0
	_, err := New(thm("R"), p)
	require.Error(t, err)
}

func TestNodeMaskSolvingForbidsReenteringSolvedSubtree(t *testing.T) {
	p := Default()
	p.NodeMask = params.NodeMaskSolving
	d, err := New(thm("R"), p)
	require.NoError(t, err)

	d.TheoremsToExpand()
	exp, err := theorem.NewExpansion(thm("R"), 0, 0, nil, nil, 0,
		[]theorem.Tactic{tac("t1", 0)}, [][]theorem.Theorem{{}}, []float64{1.0})
	require.NoError(t, err)
	d.ExpandAndBackup([]theorem.EnvExpansion{exp})

	assert.True(t, d.IsDone())
	leaves := d.TheoremsToExpand()
	assert.Empty(t, leaves)
}
