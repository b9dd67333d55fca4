package sim

import (
	"math"

	"github.com/inference-sim/qswitch-sim/sim/quantum"
)

const maxLifetimeSeconds = 1e9

// LinkGenerator models successful entanglement generation on one leaf-switch link.
// It yields an infinite sequence of success times and the pair produced at each.
type LinkGenerator struct {
	leaf        Leaf
	sampler     ArrivalSampler
	arrivals    Source
	lifetimes   Source
	expiryRate  float64 // 1/s, 0 = qubits never expire
	fiberDepol  float64
	backend     quantum.Backend
	generations int64
}

// NewLinkGenerator creates a generator for leaf. lifetimes may be nil when expiryRate is 0.
func NewLinkGenerator(leaf Leaf, sampler ArrivalSampler, arrivals, lifetimes Source,
	expiryRate, fiberDepolarPerKm float64, backend quantum.Backend) *LinkGenerator {
	if sampler == nil || arrivals == nil || backend == nil {
		panic("NewLinkGenerator: sampler, arrivals and backend must not be nil")
	}
	if expiryRate > 0 && lifetimes == nil {
		panic("NewLinkGenerator: lifetimes must not be nil when expiryRate > 0")
	}
	return &LinkGenerator{
		leaf:       leaf,
		sampler:    sampler,
		arrivals:   arrivals,
		lifetimes:  lifetimes,
		expiryRate: expiryRate,
		fiberDepol: leaf.FiberDepolarization(fiberDepolarPerKm),
		backend:    backend,
	}
}

// NextArrival returns the time of the next success after now, or Never.
func (g *LinkGenerator) NextArrival(now int64) int64 {
	iat := g.sampler.SampleIAT(g.arrivals)
	if iat >= Never-now {
		return Never
	}
	return now + iat
}

// Generate produces the buffered half of a fresh EPR pair created at now.
func (g *LinkGenerator) Generate(now int64, seq uint64) BufferedQubit {
	g.generations++
	q := BufferedQubit{
		Leaf:      g.leaf.ID,
		CreatedAt: now,
		Seq:       seq,
		Pair:      g.backend.GeneratePair(g.fiberDepol),
	}
	if g.expiryRate > 0 {
		lifetime := -math.Log(1-g.lifetimes.Float64()) / g.expiryRate
		// lifetimes beyond the tick range never expire
		if lifetime < maxLifetimeSeconds {
			if ticks := max(1, SecondsToTicks(lifetime)); ticks < math.MaxInt64-now {
				q.ExpiresAt = now + ticks
			}
		}
	}
	return q
}

// Leaf returns the leaf this generator serves.
func (g *LinkGenerator) Leaf() Leaf { return g.leaf }

// Generations returns the number of pairs produced so far.
func (g *LinkGenerator) Generations() int64 { return g.generations }

// FiberDepolarization returns the depolarizing parameter applied to every generated pair.
func (g *LinkGenerator) FiberDepolarization() float64 { return g.fiberDepol }
