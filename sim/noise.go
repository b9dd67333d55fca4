package sim

import "math"

// NoiseModel maps buffered duration to a depolarizing parameter.
// It holds configuration only; Decohere is a pure function of its inputs.
type NoiseModel struct {
	DecayRate float64 // 1/s
}

// Decohere returns p = 1 - exp(-decayRate * age) for q consumed at now, with age in seconds.
// p is in [0,1) and non-decreasing in age.
func (m NoiseModel) Decohere(q BufferedQubit, now int64) float64 {
	age := q.Age(now)
	if age <= 0 || m.DecayRate <= 0 {
		return 0
	}
	return -math.Expm1(-m.DecayRate * TicksToSeconds(age))
}
