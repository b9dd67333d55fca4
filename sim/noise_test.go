package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseModel_Decohere_MonotoneInBufferedDuration(t *testing.T) {
	// GIVEN a decay rate and qubits that differ only in creation time
	m := NoiseModel{DecayRate: 3}
	now := SecondsToTicks(1)
	prev := -1.0

	// WHEN consumed at the same instant
	for _, age := range []float64{0, 1e-6, 1e-4, 1e-3, 0.01, 0.1, 0.5, 1} {
		p := m.Decohere(qubit(0, now-SecondsToTicks(age), 0), now)

		// THEN the longer-buffered qubit never gets a smaller parameter
		assert.GreaterOrEqual(t, p, prev, "age %v", age)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.Less(t, p, 1.0)
		prev = p
	}
}

func TestNoiseModel_Decohere_MatchesExponentialDecay(t *testing.T) {
	m := NoiseModel{DecayRate: 2}
	p := m.Decohere(qubit(0, 0, 0), SecondsToTicks(0.5))
	assert.InDelta(t, 1-math.Exp(-1), p, 1e-12)
}

func TestNoiseModel_Decohere_ZeroRateOrAge_NoNoise(t *testing.T) {
	assert.Equal(t, 0.0, NoiseModel{}.Decohere(qubit(0, 0, 0), SecondsToTicks(10)))
	assert.Equal(t, 0.0, NoiseModel{DecayRate: 5}.Decohere(qubit(0, 100, 0), 100))
}

func TestNoiseModel_Decohere_Deterministic(t *testing.T) {
	m := NoiseModel{DecayRate: 3}
	q := qubit(1, 12345, 9)
	assert.Equal(t, m.Decohere(q, 999999), m.Decohere(q, 999999))
}
