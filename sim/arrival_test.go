package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/qswitch-sim/sim/quantum"
)

func TestPoissonSampler_MeanMatchesRate(t *testing.T) {
	// GIVEN a Poisson sampler at 1 kHz
	sampler, err := NewArrivalSampler(ProcessPoisson, 1000)
	require.NoError(t, err)
	src := rand.New(rand.NewSource(42))

	// WHEN many inter-arrival times are drawn
	const n = 20000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		iat := float64(sampler.SampleIAT(src))
		require.GreaterOrEqual(t, iat, 1.0)
		sum += iat
		sumSq += iat * iat
	}

	// THEN the mean is 1ms and the coefficient of variation is ~1
	mean := sum / n
	std := math.Sqrt(sumSq/n - mean*mean)
	assert.InEpsilon(t, 1e6, mean, 0.03)
	assert.InDelta(t, 1.0, std/mean, 0.05)
}

func TestPoissonSampler_FloorsAtOneTick(t *testing.T) {
	// GIVEN an absurdly high rate
	sampler, err := NewArrivalSampler(ProcessPoisson, 1e15)
	require.NoError(t, err)
	src := rand.New(rand.NewSource(1))

	// THEN every inter-arrival time is at least one tick
	for i := 0; i < 100; i++ {
		assert.GreaterOrEqual(t, sampler.SampleIAT(src), int64(1))
	}
}

func TestPoissonSampler_VeryLowRate_SaturatesToNever(t *testing.T) {
	// GIVEN a link at 1e-12 Hz, far slower than the int64 tick range can express
	sampler, err := NewArrivalSampler(ProcessPoisson, 1e-12)
	require.NoError(t, err)
	src := rand.New(rand.NewSource(3))

	// THEN no draw wraps around to a short inter-arrival time
	for i := 0; i < 100; i++ {
		assert.Greater(t, sampler.SampleIAT(src), SecondsToTicks(1e6))
	}
}

func TestConstantSampler_VeryLowRate_SaturatesToNever(t *testing.T) {
	sampler, err := NewArrivalSampler(ProcessConstant, 1e-12)
	require.NoError(t, err)
	assert.Equal(t, Never, sampler.SampleIAT(nil))
}

// fixedSampler returns the same inter-arrival time on every draw.
type fixedSampler int64

func (f fixedSampler) SampleIAT(Source) int64 { return int64(f) }

func TestLinkGenerator_NextArrival_Saturates(t *testing.T) {
	leaf := Leaf{ID: 0, Rate: 1}
	src := rand.New(rand.NewSource(1))
	backend, err := quantum.NewBackend("")
	require.NoError(t, err)

	near := NewLinkGenerator(leaf, fixedSampler(10), src, nil, 0, 0, backend)
	assert.Equal(t, int64(110), near.NextArrival(100))

	far := NewLinkGenerator(leaf, fixedSampler(math.MaxInt64-5), src, nil, 0, 0, backend)
	assert.Equal(t, Never, far.NextArrival(100))
	assert.Equal(t, Never, NewLinkGenerator(leaf, fixedSampler(Never), src, nil, 0, 0, backend).NextArrival(0))
}

func TestSecondsToTicks_Saturates(t *testing.T) {
	assert.Equal(t, int64(math.MaxInt64), SecondsToTicks(1e12))
	assert.Equal(t, int64(math.MinInt64), SecondsToTicks(-1e12))
	assert.Equal(t, int64(math.MaxInt64), SecondsToTicks(math.Inf(1)))
}

func TestConstantSampler_FixedPeriod(t *testing.T) {
	sampler, err := NewArrivalSampler(ProcessConstant, 250)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.Equal(t, int64(4_000_000), sampler.SampleIAT(nil))
	}
}

func TestNewArrivalSampler_UnknownProcess(t *testing.T) {
	_, err := NewArrivalSampler("gamma", 1)
	assert.ErrorIs(t, err, ErrUnknownOption)
}

func TestNewArrivalSampler_NonPositiveRatePanics(t *testing.T) {
	assert.Panics(t, func() { _, _ = NewArrivalSampler(ProcessPoisson, 0) })
}
