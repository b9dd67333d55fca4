package sim

import (
	"math"

	"github.com/inference-sim/qswitch-sim/sim/quantum"
)

// StateSynthesizer consumes one qubit per participant and fuses them into a GHZ state.
type StateSynthesizer struct {
	buffers []*LeafBuffer
	noise   NoiseModel
	backend quantum.Backend
}

// NewStateSynthesizer creates a synthesizer over buffers (indexed by LeafID).
func NewStateSynthesizer(buffers []*LeafBuffer, noise NoiseModel, backend quantum.Backend) *StateSynthesizer {
	if backend == nil {
		panic("NewStateSynthesizer: backend must not be nil")
	}
	return &StateSynthesizer{buffers: buffers, noise: noise, backend: backend}
}

// Synthesize dequeues the oldest qubit of each participant, applies buffering noise for its
// age at now, fuses the pairs and returns the resulting record.
// An empty participant set or an empty participant buffer panics with a *ContractViolation.
func (s *StateSynthesizer) Synthesize(now int64, participants []LeafID) StateRecord {
	if len(participants) == 0 {
		violate("StateSynthesizer.Synthesize", "empty participant set")
	}
	pairs := make([]quantum.PairState, len(participants))
	ages := make([]int64, len(participants))
	for i, id := range participants {
		if int(id) < 0 || int(id) >= len(s.buffers) {
			violate("StateSynthesizer.Synthesize", "unknown leaf %d", id)
		}
		q := s.buffers[id].DequeueOldest()
		pairs[i] = s.backend.Depolarize(q.Pair, s.noise.Decohere(q, now))
		ages[i] = q.Age(now)
	}

	state, err := s.backend.Fuse(pairs)
	if err != nil {
		violate("StateSynthesizer.Synthesize", "fuse: %v", err)
	}
	fidelity, err := s.backend.Fidelity(state)
	if err != nil {
		violate("StateSynthesizer.Synthesize", "fidelity: %v", err)
	}
	if math.IsNaN(fidelity) {
		violate("StateSynthesizer.Synthesize", "backend %s returned NaN fidelity", s.backend.Name())
	}

	return StateRecord{
		Time:         now,
		Participants: append([]LeafID(nil), participants...),
		Fidelity:     min(max(fidelity, 0), 1),
		Ages:         ages,
	}
}
