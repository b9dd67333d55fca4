// Tracks per-run switch output: produced states, generations and lost qubits.

package sim

import (
	"fmt"
	"io"
	"iter"
	"math"
	"slices"
)

// StateRecord is one GHZ state produced by the switch. Immutable once recorded.
type StateRecord struct {
	Time         int64    // ticks
	Participants []LeafID // ascending leaf index
	Fidelity     float64  // in [0,1]
	Ages         []int64  // buffered duration per participant (ticks)
}

// Involves reports whether leaf took part in the state.
func (r StateRecord) Involves(leaf LeafID) bool {
	_, found := slices.BinarySearch(r.Participants, leaf)
	return found
}

// EvictionReason classifies a qubit lost without being fused.
type EvictionReason int

const (
	EvictionOverflow EvictionReason = iota // buffer full on enqueue
	EvictionExpired                        // cutoff or lifetime exceeded
)

func (r EvictionReason) String() string {
	switch r {
	case EvictionOverflow:
		return "overflow"
	case EvictionExpired:
		return "expired"
	default:
		return fmt.Sprintf("EvictionReason(%d)", int(r))
	}
}

// MetricsRecorder is the append-only log of one simulation run.
type MetricsRecorder struct {
	records   []StateRecord
	generated []int64
	evicted   []int64
	expired   []int64
}

// NewMetricsRecorder creates an empty recorder for numLeaves leaves.
func NewMetricsRecorder(numLeaves int) *MetricsRecorder {
	return &MetricsRecorder{
		records:   make([]StateRecord, 0),
		generated: make([]int64, numLeaves),
		evicted:   make([]int64, numLeaves),
		expired:   make([]int64, numLeaves),
	}
}

// Record appends r. The participant and age slices are copied.
func (m *MetricsRecorder) Record(r StateRecord) {
	if len(r.Participants) == 0 {
		violate("MetricsRecorder.Record", "state with no participants")
	}
	if math.IsNaN(r.Fidelity) || r.Fidelity < 0 || r.Fidelity > 1 {
		violate("MetricsRecorder.Record", "fidelity %v outside [0,1]", r.Fidelity)
	}
	r.Participants = slices.Clone(r.Participants)
	r.Ages = slices.Clone(r.Ages)
	m.records = append(m.records, r)
}

// All returns the records in production order. The sequence is finite, non-destructive and
// may be iterated any number of times; it covers the records present when All was called.
func (m *MetricsRecorder) All() iter.Seq[StateRecord] {
	snapshot := m.records[:len(m.records):len(m.records)]
	return func(yield func(StateRecord) bool) {
		for _, r := range snapshot {
			r.Participants = slices.Clone(r.Participants)
			r.Ages = slices.Clone(r.Ages)
			if !yield(r) {
				return
			}
		}
	}
}

// Len returns the number of recorded states.
func (m *MetricsRecorder) Len() int { return len(m.records) }

// RecordGeneration counts one successful generation on leaf.
func (m *MetricsRecorder) RecordGeneration(leaf LeafID) {
	m.generated[leaf]++
}

// RecordEviction counts one qubit lost on leaf.
func (m *MetricsRecorder) RecordEviction(leaf LeafID, reason EvictionReason) {
	switch reason {
	case EvictionOverflow:
		m.evicted[leaf]++
	case EvictionExpired:
		m.expired[leaf]++
	default:
		panic(fmt.Sprintf("RecordEviction: unknown reason %d", reason))
	}
}

// MeanFidelityWhere returns the mean fidelity over records accepted by filter (all records
// when filter is nil), and the number of records it averaged. Zero records give 0.
func (m *MetricsRecorder) MeanFidelityWhere(filter func(StateRecord) bool) (float64, int) {
	sum, n := 0.0, 0
	for r := range m.All() {
		if filter != nil && !filter(r) {
			continue
		}
		sum += r.Fidelity
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// InvolvesAll returns a filter accepting records in which every given leaf took part.
func InvolvesAll(leaves ...LeafID) func(StateRecord) bool {
	return func(r StateRecord) bool {
		for _, l := range leaves {
			if !r.Involves(l) {
				return false
			}
		}
		return true
	}
}

// LeafSummary aggregates one leaf's counters.
type LeafSummary struct {
	Leaf      LeafID
	Generated int64
	Evicted   int64
	Expired   int64
	States    int64   // states the leaf took part in
	StateRate float64 // States per simulated second
}

// Summary aggregates one run.
type Summary struct {
	States         int
	ElapsedSeconds float64
	Capacity       float64 // states per simulated second
	MeanFidelity   float64
	Fidelity       Distribution
	Age            Distribution // seconds each consumed qubit spent buffered
	Leaves         []LeafSummary
}

// Summarize aggregates the log over elapsed ticks of simulated time.
func (m *MetricsRecorder) Summarize(elapsed int64) Summary {
	s := Summary{
		States:         m.Len(),
		ElapsedSeconds: TicksToSeconds(elapsed),
		Leaves:         make([]LeafSummary, len(m.generated)),
	}
	for i := range s.Leaves {
		s.Leaves[i] = LeafSummary{
			Leaf:      LeafID(i),
			Generated: m.generated[i],
			Evicted:   m.evicted[i],
			Expired:   m.expired[i],
		}
	}
	fidelities := make([]float64, 0, m.Len())
	var ages []float64
	for r := range m.All() {
		fidelities = append(fidelities, r.Fidelity)
		for _, id := range r.Participants {
			s.Leaves[id].States++
		}
		for _, a := range r.Ages {
			ages = append(ages, TicksToSeconds(a))
		}
	}
	s.Fidelity = NewDistribution(fidelities)
	s.Age = NewDistribution(ages)
	s.MeanFidelity, _ = m.MeanFidelityWhere(nil)
	if s.ElapsedSeconds > 0 {
		s.Capacity = float64(s.States) / s.ElapsedSeconds
		for i := range s.Leaves {
			s.Leaves[i].StateRate = float64(s.Leaves[i].States) / s.ElapsedSeconds
		}
	}
	return s
}

// Print displays the summary.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Switch Metrics ===")
	fmt.Fprintf(w, "Simulated Time       : %g s\n", s.ElapsedSeconds)
	fmt.Fprintf(w, "States Produced      : %d\n", s.States)
	fmt.Fprintf(w, "Capacity             : %.4f states/s\n", s.Capacity)
	if s.States > 0 {
		fmt.Fprintf(w, "Mean Fidelity        : %.6f\n", s.MeanFidelity)
		fmt.Fprintf(w, "Fidelity P50 / Min   : %.6f / %.6f\n", s.Fidelity.P50, s.Fidelity.Min)
		fmt.Fprintf(w, "Buffered Age P50/P99 : %.6g / %.6g s\n", s.Age.P50, s.Age.P99)
	}
	for _, l := range s.Leaves {
		fmt.Fprintf(w, "  leaf %-3d generated=%d evicted=%d expired=%d states=%d rate=%.4f/s\n",
			l.Leaf, l.Generated, l.Evicted, l.Expired, l.States, l.StateRate)
	}
}
