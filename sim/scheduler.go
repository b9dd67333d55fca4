package sim

import (
	"cmp"
	"fmt"
	"slices"
)

// SwitchScheduler decides when the switch fuses buffered qubits and which leaves take part.
//
// Synthesis condition: with connectSize 0 every leaf must hold a qubit and all leaves
// participate; otherwise at least connectSize leaves must hold a qubit. A configured server
// leaf must hold a qubit and always participates. Candidates are ranked by the selection
// policy, ties broken by leaf index, and participants are reported in index order.
type SwitchScheduler struct {
	buffers     []*LeafBuffer
	server      LeafID // -1 when no server leaf
	connectSize int    // 0 = all leaves
	selection   string
	cutoff      int64 // ticks, 0 = no cutoff
	synth       *StateSynthesizer
}

// NewSwitchScheduler creates a scheduler over buffers (indexed by LeafID).
func NewSwitchScheduler(buffers []*LeafBuffer, server LeafID, connectSize int, selection string,
	cutoff int64, synth *StateSynthesizer) *SwitchScheduler {
	if synth == nil {
		panic("NewSwitchScheduler: synthesizer must not be nil")
	}
	for i, b := range buffers {
		if b.Leaf() != LeafID(i) {
			panic(fmt.Sprintf("NewSwitchScheduler: buffer %d belongs to leaf %d", i, b.Leaf()))
		}
	}
	if connectSize != 0 && (connectSize < 2 || connectSize > len(buffers)) {
		panic(fmt.Sprintf("NewSwitchScheduler: connect size %d out of range", connectSize))
	}
	if int(server) >= len(buffers) {
		panic(fmt.Sprintf("NewSwitchScheduler: server leaf %d out of range", server))
	}
	return &SwitchScheduler{
		buffers:     buffers,
		server:      server,
		connectSize: connectSize,
		selection:   selection,
		cutoff:      cutoff,
		synth:       synth,
	}
}

// Evaluation is the outcome of one Evaluate call.
type Evaluation struct {
	Expired   []BufferedQubit
	Decisions []Decision
}

// Decision is one synthesis with the buffer snapshot it was taken on.
type Decision struct {
	Record     StateRecord
	Candidates []Candidate
}

// Candidate is a non-empty leaf at decision time.
type Candidate struct {
	Leaf      LeafID
	Occupancy int
	OldestAge int64
	Selected  bool
}

// Evaluate drops expired qubits, then synthesizes states for as long as the condition holds.
func (s *SwitchScheduler) Evaluate(now int64) Evaluation {
	var ev Evaluation
	for _, b := range s.buffers {
		ev.Expired = append(ev.Expired, b.ExpireBefore(now, s.cutoff)...)
	}
	for s.CanSynthesize() {
		participants := s.SelectParticipants()
		candidates := s.snapshot(now, participants)
		record := s.synth.Synthesize(now, participants)
		ev.Decisions = append(ev.Decisions, Decision{Record: record, Candidates: candidates})
	}
	return ev
}

// CanSynthesize reports whether the synthesis condition holds.
func (s *SwitchScheduler) CanSynthesize() bool {
	if s.server >= 0 && s.buffers[s.server].Len() == 0 {
		return false
	}
	ready := 0
	for _, b := range s.buffers {
		if b.Len() > 0 {
			ready++
		}
	}
	if s.connectSize == 0 {
		return ready == len(s.buffers)
	}
	return ready >= s.connectSize
}

// SelectParticipants returns the leaves of the next state in ascending index order.
// Call only when CanSynthesize is true.
func (s *SwitchScheduler) SelectParticipants() []LeafID {
	want := s.connectSize
	if want == 0 {
		want = len(s.buffers)
	}

	candidates := make([]LeafID, 0, len(s.buffers))
	for _, b := range s.buffers {
		if b.Len() > 0 && b.Leaf() != s.server {
			candidates = append(candidates, b.Leaf())
		}
	}
	slices.SortStableFunc(candidates, s.compare)

	participants := make([]LeafID, 0, want)
	if s.server >= 0 {
		participants = append(participants, s.server)
	}
	for _, id := range candidates {
		if len(participants) == want {
			break
		}
		participants = append(participants, id)
	}
	if len(participants) != want {
		violate("SwitchScheduler.SelectParticipants", "selected %d leaves, need %d", len(participants), want)
	}
	slices.Sort(participants)
	return participants
}

// compare ranks candidate leaves by the selection policy, then by index.
func (s *SwitchScheduler) compare(a, b LeafID) int {
	if s.selection == SelectionOldestFirst {
		qa, _ := s.buffers[a].PeekOldest()
		qb, _ := s.buffers[b].PeekOldest()
		if c := cmp.Compare(qa.CreatedAt, qb.CreatedAt); c != 0 {
			return c
		}
	}
	return cmp.Compare(a, b)
}

func (s *SwitchScheduler) snapshot(now int64, participants []LeafID) []Candidate {
	var out []Candidate
	for _, b := range s.buffers {
		q, ok := b.PeekOldest()
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Leaf:      b.Leaf(),
			Occupancy: b.Len(),
			OldestAge: q.Age(now),
			Selected:  slices.Contains(participants, b.Leaf()),
		})
	}
	return out
}

// Server returns the server leaf, or -1.
func (s *SwitchScheduler) Server() LeafID { return s.server }
