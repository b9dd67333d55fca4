package experiment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/qswitch-sim/sim"
)

func bipartiteConfig() sim.Config {
	return sim.Config{
		Runtime:     0.2,
		Seed:        100,
		NumLeaves:   4,
		BufferSize:  1,
		ConnectSize: 2,
		Generation:  sim.GenerationConfig{Rate: 1000},
	}
}

func TestRunMultiple_UsesConsecutiveSeeds(t *testing.T) {
	// GIVEN a scenario run three times
	agg, results, err := RunMultiple("b1", bipartiteConfig(), 3)
	require.NoError(t, err)

	// THEN the runs use seeds 100, 101, 102 and the aggregate covers all of them
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, int64(100+i), r.Seed)
	}
	assert.Equal(t, 3, agg.Runs)
	assert.Equal(t, int64(100), agg.Seed)
	assert.Equal(t, 3, agg.Capacity.N)
	total := 0
	for _, r := range results {
		total += r.Summary.States
	}
	assert.Equal(t, total, agg.States)
	require.Len(t, agg.LeafStateRates, 4)
}

func TestRunMultiple_InvalidConfig(t *testing.T) {
	cfg := bipartiteConfig()
	cfg.BufferSize = 0
	_, _, err := RunMultiple("bad", cfg, 2)
	assert.ErrorIs(t, err, sim.ErrInvalidCapacity)

	_, _, err = RunMultiple("none", bipartiteConfig(), 0)
	assert.Error(t, err)
}

func TestAggregateResults_MeanAndStandardError(t *testing.T) {
	// GIVEN three runs with capacities 1, 2, 3 and one run without states
	mk := func(capacity, fidelity float64, states int) *sim.Result {
		return &sim.Result{Summary: sim.Summary{Capacity: capacity, MeanFidelity: fidelity, States: states}}
	}
	results := []*sim.Result{mk(1, 0.9, 10), mk(2, 0.7, 20), mk(3, 0, 0)}

	// WHEN aggregated
	agg := AggregateResults("x", bipartiteConfig(), results)

	// THEN capacity uses every run and fidelity only runs with states
	assert.InDelta(t, 2.0, agg.Capacity.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), agg.Capacity.StdDev, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0)/math.Sqrt(3), agg.Capacity.StdErr, 1e-12)
	assert.InDelta(t, 0.8, agg.Fidelity.Mean, 1e-12)
	assert.Equal(t, 2, agg.Fidelity.N)
	assert.Equal(t, 30, agg.States)
}

func TestAggregateResults_NoStates_FidelityNaN(t *testing.T) {
	agg := AggregateResults("x", bipartiteConfig(), []*sim.Result{{}})
	assert.True(t, math.IsNaN(agg.Fidelity.Mean))
	assert.Equal(t, 0.0, agg.Capacity.Mean)
}

func TestAnalyticalCapacity(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sim.Config)
		want   float64
		model  string
	}{
		{"bipartite buffer 1", func(c *sim.Config) { c.NumLeaves = 5 }, 2222.2222, ModelBipartite},
		{"bipartite with expiry", func(c *sim.Config) {
			c.NumLeaves = 5
			c.Noise.ExpiryRate = 500
		}, 2105.2632, ModelBipartite},
		{"all leaves", func(c *sim.Config) { c.ConnectSize = 0 }, 1000, ModelHomogeneous},
		{"server leaf", func(c *sim.Config) { c.ServerLeaf = new(int) }, math.NaN(), ModelNone},
		{"cutoff", func(c *sim.Config) { c.Noise.Cutoff = 0.01 }, math.NaN(), ModelNone},
		{"heterogeneous tripartite", func(c *sim.Config) {
			c.NumLeaves = 0
			c.ConnectSize = 3
			c.Leaves = []sim.LeafConfig{{Rate: 100}, {}, {}, {}}
		}, math.NaN(), ModelNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := bipartiteConfig()
			tt.mutate(&cfg)
			got, model := AnalyticalCapacity(cfg)
			assert.Equal(t, tt.model, model)
			if math.IsNaN(tt.want) {
				assert.True(t, math.IsNaN(got))
				return
			}
			assert.InDelta(t, tt.want, got, 1e-3)
		})
	}
}
