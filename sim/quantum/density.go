package quantum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaxDensityMatrixQubits bounds the density-matrix backend: the joint state of n pairs
// is a 4^n x 4^n matrix.
const MaxDensityMatrixQubits = 5

// DensityMatrixBackend fuses pairs by building the full density matrix of all pairs,
// projecting the switch halves onto the GHZ basis and reducing to the leaf halves.
// It is exact but exponential in the number of leaves; it exists mainly to cross-check
// the Pauli-frame backend.
type DensityMatrixBackend struct{}

// densityState is a leaf-side density matrix of dimension 2^n.
type densityState struct {
	n   int
	rho *mat.Dense
}

func (s *densityState) NumQubits() int {
	return s.n
}

// Rho exposes the reduced leaf density matrix.
func (s *densityState) Rho() mat.Matrix {
	return s.rho
}

func (DensityMatrixBackend) Name() string { return BackendDensityMatrix }

func (DensityMatrixBackend) MaxQubits() int { return MaxDensityMatrixQubits }

func (DensityMatrixBackend) GeneratePair(fiberDepolar float64) PairState {
	return PerfectPair().Depolarize(fiberDepolar)
}

func (DensityMatrixBackend) Depolarize(pair PairState, p float64) PairState {
	return pair.Depolarize(p)
}

func (DensityMatrixBackend) Fuse(pairs []PairState) (State, error) {
	if err := validatePairs(pairs); err != nil {
		return nil, err
	}
	n := len(pairs)
	if n > MaxDensityMatrixQubits {
		return nil, fmt.Errorf("density-matrix backend supports at most %d qubits, got %d", MaxDensityMatrixQubits, n)
	}

	// joint state, qubit order s0 l0 s1 l1 ... with pair 0 most significant
	var joint mat.Matrix = pairDensity(pairs[0])
	for _, p := range pairs[1:] {
		var next mat.Dense
		next.Kronecker(joint, pairDensity(p))
		joint = &next
	}

	// project the switch halves onto (|0..0> + |1..1>)/sqrt(2); the remaining GHZ-basis
	// outcomes differ from this one by a Pauli on the leaves that the correction undoes
	dim := 1 << n
	leaf := mat.NewDense(dim, dim, nil)
	for a := 0; a < dim; a++ {
		for b := 0; b < dim; b++ {
			v := 0.0
			for s := 0; s <= 1; s++ {
				for t := 0; t <= 1; t++ {
					v += joint.At(jointIndex(n, s, a), jointIndex(n, t, b))
				}
			}
			leaf.Set(a, b, v/2)
		}
	}
	tr := mat.Trace(leaf)
	if tr <= 0 {
		return nil, fmt.Errorf("GHZ projection has zero probability")
	}
	leaf.Scale(1/tr, leaf)
	return &densityState{n: n, rho: leaf}, nil
}

func (DensityMatrixBackend) Fidelity(state State) (float64, error) {
	s, ok := state.(*densityState)
	if !ok {
		return 0, fmt.Errorf("density-matrix backend cannot evaluate %T", state)
	}
	ghz := ghzVector(s.n)
	return clampProbability(mat.Inner(ghz, s.rho, ghz)), nil
}

// pairDensity returns the 4x4 density matrix of a Bell-diagonal pair in the |switch leaf> basis.
func pairDensity(p PairState) *mat.Dense {
	h := 1 / math.Sqrt2
	bell := [4]*mat.VecDense{
		PauliI: mat.NewVecDense(4, []float64{h, 0, 0, h}),
		PauliX: mat.NewVecDense(4, []float64{0, h, h, 0}),
		PauliY: mat.NewVecDense(4, []float64{0, h, -h, 0}),
		PauliZ: mat.NewVecDense(4, []float64{h, 0, 0, -h}),
	}
	rho := mat.NewDense(4, 4, nil)
	for k, w := range p.Weights {
		if w == 0 {
			continue
		}
		var outer mat.Dense
		outer.Outer(w, bell[k], bell[k])
		rho.Add(rho, &outer)
	}
	return rho
}

// jointIndex maps (switch bit s on every pair, leaf bit string a) to an index of the joint state.
func jointIndex(n, s, a int) int {
	idx := 0
	for i := 0; i < n; i++ {
		l := (a >> (n - 1 - i)) & 1
		idx = idx*4 + 2*s + l
	}
	return idx
}

func ghzVector(n int) *mat.VecDense {
	dim := 1 << n
	v := mat.NewVecDense(dim, nil)
	v.SetVec(0, 1/math.Sqrt2)
	v.SetVec(dim-1, 1/math.Sqrt2)
	return v
}
