package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/iti/rngstream"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Names ===

// SubsystemLink returns the subsystem name for the generation process of leaf id.
func SubsystemLink(id LeafID) string {
	return fmt.Sprintf("link_%d", id)
}

// SubsystemExpiry returns the subsystem name for qubit lifetimes on leaf id.
func SubsystemExpiry(id LeafID) string {
	return fmt.Sprintf("expiry_%d", id)
}

// === Sources ===

// RNG algorithm names.
const (
	RNGMathRand = "math-rand"
	RNGMRG32k3a = "mrg32k3a"
)

// IsValidRNG returns true if name is a recognized RNG algorithm.
func IsValidRNG(name string) bool {
	return name == RNGMathRand || name == RNGMRG32k3a || name == ""
}

// Source is a stream of uniform variates in [0,1).
type Source interface {
	Float64() float64
}

// streamSource adapts an L'Ecuyer MRG32k3a stream to Source.
type streamSource struct {
	stream *rngstream.RngStream
}

func (s streamSource) Float64() float64 {
	// RandU01 draws from (0,1)
	return s.stream.RandU01()
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated random sources per subsystem.
//
// With math-rand each subsystem is seeded with masterSeed XOR fnv1a64(subsystemName).
// With mrg32k3a each subsystem gets an L'Ecuyer stream whose six-word state is derived from
// the same masterSeed XOR fnv1a64(subsystemName) value.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	algorithm  string
	subsystems map[string]Source
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey, algorithm string) *PartitionedRNG {
	if algorithm == "" {
		algorithm = RNGMathRand
	}
	return &PartitionedRNG{
		key:        key,
		algorithm:  algorithm,
		subsystems: make(map[string]Source),
	}
}

// ForSubsystem returns a deterministically-seeded source for the named subsystem.
// The same subsystem name always returns the same instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) Source {
	if src, ok := p.subsystems[name]; ok {
		return src
	}

	var src Source
	switch p.algorithm {
	case RNGMRG32k3a:
		stream := rngstream.New(name)
		if !stream.SetSeed(mrgSeed(int64(p.key) ^ fnv1a64(name))) {
			panic(fmt.Sprintf("PartitionedRNG: invalid mrg32k3a seed for %q", name))
		}
		src = streamSource{stream: stream}
	default:
		src = rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	}
	p.subsystems[name] = src
	return src
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// Algorithm returns the RNG algorithm name.
func (p *PartitionedRNG) Algorithm() string {
	return p.algorithm
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// MRG32k3a moduli; seed words must lie below them.
const (
	mrgM1 uint64 = 4294967087
	mrgM2 uint64 = 4294944443
)

// mrgSeed expands v into a valid MRG32k3a state with splitmix64: three words in [1, m1)
// and three in [1, m2).
func mrgSeed(v int64) []uint64 {
	x := uint64(v)
	next := func() uint64 {
		x += 0x9e3779b97f4a7c15
		z := x
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		return z ^ (z >> 31)
	}
	seed := make([]uint64, 6)
	for i := range seed {
		m := mrgM1
		if i >= 3 {
			m = mrgM2
		}
		seed[i] = 1 + next()%(m-1)
	}
	return seed
}
