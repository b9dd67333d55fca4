package sim

import "math"

// TicksPerSecond is the resolution of the simulation clock (nanoseconds).
const TicksPerSecond int64 = 1_000_000_000

// SecondsToTicks converts simulated seconds to clock ticks, saturating at the int64 range.
func SecondsToTicks(s float64) int64 {
	return saturateTicks(math.Round(s * float64(TicksPerSecond)))
}

// saturateTicks truncates t to int64, clamping values outside its range.
func saturateTicks(t float64) int64 {
	switch {
	case t >= math.MaxInt64: // float64(math.MaxInt64) is 2^63
		return math.MaxInt64
	case t <= math.MinInt64:
		return math.MinInt64
	}
	return int64(t)
}

// TicksToSeconds converts clock ticks to simulated seconds.
func TicksToSeconds(t int64) float64 {
	return float64(t) / float64(TicksPerSecond)
}

// Fiber constants from Vardoyan et al., "On the stochastic analysis of a quantum
// entanglement switch", section VII.
const (
	VardoyanLossCoefficient = 0.2  // beta, dB/km
	VardoyanAttemptDuration = 1e-9 // tau, seconds
	VardoyanLossParameter   = 0.1  // c
)

// DistanceToRate returns the entanglement generation rate (Hz) over a fiber of the given
// length (km), with the midpoint station at half the distance:
//
//	rate = 2 * c * 10^(-0.1 * beta * d/2) / tau
func DistanceToRate(distanceKm, lossParameter, lossCoefficient, attemptDuration float64) float64 {
	transmissivity := math.Pow(10, -0.1*lossCoefficient*distanceKm/2)
	return 2 * lossParameter * transmissivity / attemptDuration
}

// RateToDistance inverts DistanceToRate.
func RateToDistance(rate, lossParameter, lossCoefficient, attemptDuration float64) float64 {
	return -10 * math.Log(attemptDuration*rate/lossParameter/2) / (math.Ln10 * lossCoefficient / 2)
}

// VardoyanDistanceToRate is DistanceToRate with the Vardoyan constants.
func VardoyanDistanceToRate(distanceKm float64) float64 {
	return DistanceToRate(distanceKm, VardoyanLossParameter, VardoyanLossCoefficient, VardoyanAttemptDuration)
}

// VardoyanRateToDistance is RateToDistance with the Vardoyan constants.
func VardoyanRateToDistance(rate float64) float64 {
	return RateToDistance(rate, VardoyanLossParameter, VardoyanLossCoefficient, VardoyanAttemptDuration)
}

// AnalyticalCapacityHomogeneous is the capacity of a switch with k users generating at
// identical rate mu, unbounded buffers and no decoherence, producing n-partite states with
// connect success probability q.
func AnalyticalCapacityHomogeneous(q, mu float64, k, n int) float64 {
	return q * mu * float64(k) / float64(n)
}

// AnalyticalCapacityBipartite is the capacity of a switch producing Bell pairs (n=2) with
// per-user rates mus, buffer size b, exponential decoherence rate alpha and connect success
// probability q.
func AnalyticalCapacityBipartite(mus []float64, b int, alpha, q float64) float64 {
	gamma := 0.0
	for _, mu := range mus {
		gamma += mu
	}
	stateSum, weightedSum := 0.0, 0.0
	for _, mu := range mus {
		prod := 1.0
		for j := 1; j <= b; j++ {
			prod *= mu / (gamma - mu + float64(j)*alpha)
			stateSum += prod
			weightedSum += prod * (gamma - mu)
		}
	}
	pi0 := 1 / (1 + stateSum)
	return q * pi0 * weightedSum
}
