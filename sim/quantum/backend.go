// Package quantum provides the quantum-state collaborator used by the switch engine:
// EPR pair generation, depolarizing noise, GHZ fusion and fidelity against the ideal state.
//
// All states the switch handles are Bell-diagonal: an EPR pair is |Phi+> with a random
// Pauli acting on its leaf half. Depolarizing noise keeps a state Bell-diagonal, so a pair
// is fully described by four Pauli-frame probabilities.
// This package has no dependencies on sim/.
package quantum

import (
	"fmt"
	"math"
)

// Pauli frame indices into PairState.Weights.
const (
	PauliI = iota
	PauliX
	PauliY
	PauliZ
)

// PairState is a Bell-diagonal two-qubit state shared between the switch and one leaf.
// Weights[k] is the probability that Pauli k acts on the leaf half of |Phi+>.
type PairState struct {
	Weights [4]float64
}

// PerfectPair returns |Phi+>.
func PerfectPair() PairState {
	return PairState{Weights: [4]float64{1, 0, 0, 0}}
}

// WernerPair returns w|Phi+><Phi+| + (1-w) I/4.
func WernerPair(w float64) PairState {
	return PerfectPair().Depolarize(1 - w)
}

// Depolarize applies the depolarizing channel with parameter p to one half of the pair:
// rho -> (1-p) rho + p I/2 on that qubit.
func (ps PairState) Depolarize(p float64) PairState {
	p = clampProbability(p)
	var out PairState
	for k, w := range ps.Weights {
		out.Weights[k] = (1-p)*w + p/4
	}
	return out
}

// Fidelity returns the fidelity of the pair with |Phi+>.
func (ps PairState) Fidelity() float64 {
	return ps.Weights[PauliI]
}

// State is a multipartite state produced by Backend.Fuse.
type State interface {
	NumQubits() int
}

// Backend is the quantum-operations collaborator.
type Backend interface {
	// Name returns the registry name of the backend.
	Name() string
	// GeneratePair produces a fresh EPR pair, with fiber-induced depolarization applied.
	GeneratePair(fiberDepolar float64) PairState
	// Depolarize applies depolarizing noise with parameter p to the buffered half.
	Depolarize(pair PairState, p float64) PairState
	// Fuse measures the switch halves of pairs in the GHZ basis and applies the Pauli
	// corrections, leaving a GHZ state shared by the leaf halves.
	Fuse(pairs []PairState) (State, error)
	// Fidelity returns the fidelity of state against the ideal GHZ state, in [0,1].
	Fidelity(state State) (float64, error)
	// MaxQubits is the largest GHZ state the backend can fuse (0 = unbounded).
	MaxQubits() int
}

// Backend names.
const (
	BackendPauliFrame    = "pauli-frame"
	BackendDensityMatrix = "density-matrix"
)

var validBackends = map[string]bool{
	BackendPauliFrame:    true,
	BackendDensityMatrix: true,
	"":                   true, // empty defaults to pauli-frame
}

// IsValidBackend returns true if name is a recognized backend.
func IsValidBackend(name string) bool {
	return validBackends[name]
}

// NewBackend returns the backend registered under name.
func NewBackend(name string) (Backend, error) {
	switch name {
	case BackendPauliFrame, "":
		return PauliFrameBackend{}, nil
	case BackendDensityMatrix:
		return DensityMatrixBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown quantum backend %q; valid: %s, %s", name, BackendPauliFrame, BackendDensityMatrix)
	}
}

func clampProbability(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	return math.Min(p, 1)
}

func validatePairs(pairs []PairState) error {
	if len(pairs) < 2 {
		return fmt.Errorf("GHZ fusion needs at least 2 pairs, got %d", len(pairs))
	}
	for i, p := range pairs {
		sum := 0.0
		for _, w := range p.Weights {
			if w < 0 || math.IsNaN(w) {
				return fmt.Errorf("pair %d: invalid Pauli weight %v", i, w)
			}
			sum += w
		}
		if math.Abs(sum-1) > 1e-9 {
			return fmt.Errorf("pair %d: Pauli weights sum to %v, want 1", i, sum)
		}
	}
	return nil
}
