package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sorgfresser/htps-go/pkg/theorem"
)

func scenarioWithMap(m map[string]scenarioTheorem, root string) *scenarioFile {
	return &scenarioFile{Root: root, Theorems: m}
}

func TestOracleExpandReturnsTacticsAndEffects(t *testing.T) {
	s := scenarioWithMap(map[string]scenarioTheorem{
		"R": {
			Conclusion: "R",
			LogCritic:  -0.2,
			Tactics: []scenarioTactic{
				{Name: "tA", Duration: 1, Prior: 1.0, Children: []string{"A"}},
			},
		},
		"A": {Conclusion: "A"},
	}, "R")

	o := newFakeOracle(s)
	exp, err := o.expand(context.Background(), theorem.New("R", "R", nil, nil, nil))
	require.NoError(t, err)
	assert.False(t, exp.IsError)
	require.Len(t, exp.Tactics, 1)
	assert.Equal(t, "tA", exp.Tactics[0].UniqueString)
	require.Len(t, exp.Effects, 1)
	assert.Equal(t, "A", exp.Effects[0].Children[0].UniqueString)
}

func TestOracleErrorEntryReturnsErrorExpansion(t *testing.T) {
	s := scenarioWithMap(map[string]scenarioTheorem{
		"R": {IsError: true, Error: "stuck goal"},
	}, "R")

	o := newFakeOracle(s)
	exp, err := o.expand(context.Background(), theorem.New("R", "R", nil, nil, nil))
	require.NoError(t, err)
	assert.True(t, exp.IsError)
	assert.Equal(t, "stuck goal", exp.Error)
}

func TestOracleMissingTheoremErrors(t *testing.T) {
	s := scenarioWithMap(map[string]scenarioTheorem{"R": {}}, "R")
	o := newFakeOracle(s)
	_, err := o.expand(context.Background(), theorem.New("ghost", "ghost", nil, nil, nil))
	assert.Error(t, err)
}

func TestOracleRetriesFlakyTheoremUntilSuccess(t *testing.T) {
	s := scenarioWithMap(map[string]scenarioTheorem{
		"R": {FlakyAttempts: 2, Tactics: []scenarioTactic{{Name: "tA", Prior: 1.0}}},
	}, "R")

	o := newFakeOracle(s)
	exp, err := o.expand(context.Background(), theorem.New("R", "R", nil, nil, nil))
	require.NoError(t, err)
	assert.False(t, exp.IsError)
	assert.Equal(t, 3, o.attempts["R"])
}

func TestQueryOracleFillsErrorExpansionOnExhaustedRetries(t *testing.T) {
	s := scenarioWithMap(map[string]scenarioTheorem{
		"R": {FlakyAttempts: 100, Tactics: []scenarioTactic{{Name: "tA", Prior: 1.0}}},
	}, "R")
	o := newFakeOracle(s)

	expansions, err := queryOracle(context.Background(), o, []theorem.Theorem{theorem.New("R", "R", nil, nil, nil)})
	require.NoError(t, err)
	require.Len(t, expansions, 1)
	assert.True(t, expansions[0].IsError)
}
