package sim

import (
	"fmt"
	"math"
)

// Never is the arrival time of a link that does not succeed again within the clock's range.
const Never int64 = math.MaxInt64

// ArrivalSampler generates inter-arrival times for one link.
type ArrivalSampler interface {
	// SampleIAT returns the next inter-arrival time in ticks.
	// Always returns a positive value (>= 1); Never when it exceeds the clock's range.
	SampleIAT(src Source) int64
}

// PoissonSampler generates exponentially-distributed inter-arrival times with mean 1/rate.
type PoissonSampler struct {
	ratePerTick float64
}

func (s *PoissonSampler) SampleIAT(src Source) int64 {
	// inverse CDF on a uniform in [0,1); 1-u is in (0,1]
	iat := saturateTicks(-math.Log(1-src.Float64()) / s.ratePerTick)
	if iat < 1 {
		return 1
	}
	return iat
}

// ConstantSampler generates a fixed inter-arrival time of 1/rate.
type ConstantSampler struct {
	period int64
}

func (s *ConstantSampler) SampleIAT(_ Source) int64 {
	return s.period
}

// NewArrivalSampler creates a sampler for the given process and rate (Hz).
// Panics on a non-positive rate; Config.Validate rejects those earlier.
func NewArrivalSampler(process string, rate float64) (ArrivalSampler, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		panic(fmt.Sprintf("NewArrivalSampler: rate must be positive, got %f", rate))
	}
	switch process {
	case ProcessPoisson, "":
		return &PoissonSampler{ratePerTick: rate / float64(TicksPerSecond)}, nil
	case ProcessConstant:
		period := SecondsToTicks(1 / rate)
		if period < 1 {
			period = 1
		}
		return &ConstantSampler{period: period}, nil
	default:
		return nil, fmt.Errorf("unknown arrival process %q: %w", process, ErrUnknownOption)
	}
}
