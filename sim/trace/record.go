// Package trace provides decision-trace recording for switch scheduling analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// Discard reasons.
const (
	ReasonOverflow = "overflow" // evicted by an enqueue on a full buffer
	ReasonExpired  = "expired"  // dropped by the cutoff or lifetime before use
)

// CandidateLeaf captures one leaf that could have joined a synthesis, with its buffer state.
type CandidateLeaf struct {
	Leaf         int
	Occupancy    int
	OldestAge    int64 // ticks
	Selected     bool
	IsServerLeaf bool
}

// SynthesisRecord captures a single synthesis decision.
type SynthesisRecord struct {
	Clock        int64
	Participants []int
	Fidelity     float64
	Reason       string          // selection policy that produced the participant set
	Candidates   []CandidateLeaf // every non-empty leaf at decision time, by index
}

// DiscardRecord captures a qubit dropped without being fused.
type DiscardRecord struct {
	Clock  int64
	Leaf   int
	Age    int64 // ticks
	Reason string
}
