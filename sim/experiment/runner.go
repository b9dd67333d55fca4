// Package experiment runs switch scenarios repeatedly and aggregates their results.
//
// A scenario is one sim.Config. RunMultiple executes it with seeds seed, seed+1, ... and
// reduces the per-run summaries into mean and standard-error estimates. Sweeps run a list of
// scenarios derived from a shared base. Aggregates can be written as CSV, raw state records
// as msgpack, and both to a SQLite store.
package experiment

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/inference-sim/qswitch-sim/sim"
)

// Estimate is the mean of a per-run quantity with its spread across runs.
type Estimate struct {
	Mean   float64
	StdDev float64 // population standard deviation across runs
	StdErr float64 // StdDev / sqrt(runs)
	N      int     // runs contributing
}

// Aggregate summarizes R runs of one scenario.
type Aggregate struct {
	Scenario           string
	Runs               int
	Seed               int64 // seed of the first run
	NumLeaves          int
	ConnectSize        int
	BufferSize         int
	States             int // total across runs
	Capacity           Estimate
	Fidelity           Estimate // over runs that produced at least one state
	LeafStateRates     []Estimate
	AnalyticalCapacity float64 // NaN when no closed form applies
	AnalyticalModel    string
}

// RunMultiple runs cfg runs times with seeds cfg.Seed+i and aggregates the results.
// The returned results are in seed order.
func RunMultiple(name string, cfg sim.Config, runs int) (Aggregate, []*sim.Result, error) {
	if runs < 1 {
		return Aggregate{}, nil, fmt.Errorf("runs must be >= 1, got %d", runs)
	}
	results := make([]*sim.Result, 0, runs)
	for i := 0; i < runs; i++ {
		runCfg := cfg
		runCfg.Seed = cfg.Seed + int64(i)
		s, err := sim.NewSimulator(runCfg)
		if err != nil {
			return Aggregate{}, nil, fmt.Errorf("scenario %q: %w", name, err)
		}
		res := s.Run()
		logrus.Debugf("scenario %q run %d/%d (seed %d): %d states", name, i+1, runs, runCfg.Seed, res.Summary.States)
		results = append(results, res)
	}
	agg := AggregateResults(name, cfg, results)
	logrus.Infof("scenario %q: capacity %.4f ± %.4f /s, fidelity %.6f ± %.6f over %d runs",
		name, agg.Capacity.Mean, agg.Capacity.StdErr, agg.Fidelity.Mean, agg.Fidelity.StdErr, agg.Runs)
	return agg, results, nil
}

// AggregateResults reduces run results of cfg into an Aggregate.
func AggregateResults(name string, cfg sim.Config, results []*sim.Result) Aggregate {
	cfg = cfg.WithDefaults()
	n := cfg.NumLeavesResolved()
	agg := Aggregate{
		Scenario:       name,
		Runs:           len(results),
		Seed:           cfg.Seed,
		NumLeaves:      n,
		ConnectSize:    cfg.ParticipantCount(),
		BufferSize:     cfg.BufferSize,
		LeafStateRates: make([]Estimate, n),
	}
	agg.AnalyticalCapacity, agg.AnalyticalModel = AnalyticalCapacity(cfg)

	capacities := make([]float64, 0, len(results))
	fidelities := make([]float64, 0, len(results))
	leafRates := make([][]float64, n)
	for _, r := range results {
		agg.States += r.Summary.States
		capacities = append(capacities, r.Summary.Capacity)
		if r.Summary.States > 0 {
			fidelities = append(fidelities, r.Summary.MeanFidelity)
		}
		for _, l := range r.Summary.Leaves {
			leafRates[l.Leaf] = append(leafRates[l.Leaf], l.StateRate)
		}
	}
	agg.Capacity = estimate(capacities)
	agg.Fidelity = estimate(fidelities)
	for i := range leafRates {
		agg.LeafStateRates[i] = estimate(leafRates[i])
	}
	return agg
}

func estimate(x []float64) Estimate {
	if len(x) == 0 {
		return Estimate{Mean: math.NaN(), StdDev: math.NaN(), StdErr: math.NaN()}
	}
	mean, std := stat.PopMeanStdDev(x, nil)
	return Estimate{Mean: mean, StdDev: std, StdErr: stat.StdErr(std, float64(len(x))), N: len(x)}
}

// Analytical models reported next to simulated capacity.
const (
	ModelBipartite   = "bipartite"   // Markov chain of the n=2 switch with buffer B
	ModelHomogeneous = "homogeneous" // unbounded-buffer limit q*mu*k/n
	ModelNone        = "none"
)

// AnalyticalCapacity returns the closed-form capacity for cfg when one applies. Server-leaf
// and cutoff scenarios have none. Bipartite scenarios with a uniform buffer use the Vardoyan
// chain, with noise.expiry_rate as its decoherence rate. Other scenarios with identical rates
// and no expiry use the unbounded-buffer limit.
func AnalyticalCapacity(cfg sim.Config) (float64, string) {
	cfg = cfg.WithDefaults()
	if cfg.Validate() != nil || cfg.Noise.Cutoff > 0 {
		return math.NaN(), ModelNone
	}
	leaves := cfg.ResolveLeaves()
	rates := make([]float64, len(leaves))
	uniformBuffer, uniformRate := true, true
	for i, l := range leaves {
		if l.Server {
			return math.NaN(), ModelNone
		}
		rates[i] = l.Rate
		uniformBuffer = uniformBuffer && l.BufferSize == leaves[0].BufferSize
		uniformRate = uniformRate && l.Rate == leaves[0].Rate
	}
	k := cfg.ParticipantCount()
	switch {
	case k == 2 && uniformBuffer:
		return sim.AnalyticalCapacityBipartite(rates, leaves[0].BufferSize, cfg.Noise.ExpiryRate, 1), ModelBipartite
	case uniformRate && cfg.Noise.ExpiryRate == 0:
		return sim.AnalyticalCapacityHomogeneous(1, rates[0], len(leaves), k), ModelHomogeneous
	default:
		return math.NaN(), ModelNone
	}
}
