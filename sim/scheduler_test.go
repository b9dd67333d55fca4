package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/qswitch-sim/sim/quantum"
)

func newTestScheduler(t *testing.T, n, capacity int, server LeafID, connectSize int, selection string) (*SwitchScheduler, []*LeafBuffer) {
	t.Helper()
	buffers := make([]*LeafBuffer, n)
	for i := range buffers {
		buffers[i] = NewLeafBuffer(LeafID(i), capacity)
	}
	synth := NewStateSynthesizer(buffers, NoiseModel{}, quantum.PauliFrameBackend{})
	return NewSwitchScheduler(buffers, server, connectSize, selection, 0, synth), buffers
}

func fill(buffers []*LeafBuffer, createdAt int64, leaves ...LeafID) {
	for _, id := range leaves {
		buffers[id].Enqueue(qubit(id, createdAt, uint64(createdAt)))
	}
}

func TestSwitchScheduler_AllLeaves_WaitsForEveryBuffer(t *testing.T) {
	// GIVEN 3 leaves with connect size 0 and two stocked buffers
	s, buffers := newTestScheduler(t, 3, 1, -1, 0, SelectionOldestFirst)
	fill(buffers, 0, 0, 1)

	// THEN nothing fires
	assert.False(t, s.CanSynthesize())
	assert.Empty(t, s.Evaluate(10).Decisions)

	// WHEN the last buffer is stocked
	fill(buffers, 5, 2)
	ev := s.Evaluate(10)

	// THEN exactly one state with every leaf fires
	require.Len(t, ev.Decisions, 1)
	assert.Equal(t, []LeafID{0, 1, 2}, ev.Decisions[0].Record.Participants)
	for _, b := range buffers {
		assert.Equal(t, 0, b.Len())
	}
}

func TestSwitchScheduler_Evaluate_FiresRepeatedlyWhileConditionHolds(t *testing.T) {
	// GIVEN 2 leaves with two qubits each
	s, buffers := newTestScheduler(t, 2, 3, -1, 0, SelectionOldestFirst)
	fill(buffers, 1, 0, 1)
	fill(buffers, 2, 0, 1)

	// WHEN evaluated once
	ev := s.Evaluate(3)

	// THEN both states are produced in the same evaluation
	assert.Len(t, ev.Decisions, 2)
	assert.False(t, s.CanSynthesize())
}

func TestSwitchScheduler_ServerLeaf_GatesSynthesis(t *testing.T) {
	// GIVEN 4 leaves, server leaf 3, connect size 2, all non-server buffers full
	s, buffers := newTestScheduler(t, 4, 2, 3, 2, SelectionOldestFirst)
	fill(buffers, 0, 0, 1, 2)
	fill(buffers, 1, 0, 1, 2)

	// THEN synthesis never fires while the server buffer is empty
	assert.False(t, s.CanSynthesize())
	assert.Empty(t, s.Evaluate(5).Decisions)

	// WHEN the server gets a qubit
	fill(buffers, 4, 3)
	ev := s.Evaluate(5)

	// THEN one state fires and it includes the server
	require.Len(t, ev.Decisions, 1)
	assert.Contains(t, ev.Decisions[0].Record.Participants, LeafID(3))
	assert.Len(t, ev.Decisions[0].Record.Participants, 2)
}

func TestSwitchScheduler_ServerLeaf_AllLeavesMode(t *testing.T) {
	s, buffers := newTestScheduler(t, 3, 1, 0, 0, SelectionOldestFirst)
	fill(buffers, 0, 1, 2)
	assert.False(t, s.CanSynthesize())
	fill(buffers, 1, 0)
	assert.True(t, s.CanSynthesize())
	assert.Equal(t, []LeafID{0, 1, 2}, s.SelectParticipants())
}

func TestSwitchScheduler_ConnectSize_OldestFirstSelection(t *testing.T) {
	// GIVEN 4 leaves, connect size 2, leaf 3 holding the oldest qubit
	s, buffers := newTestScheduler(t, 4, 1, -1, 2, SelectionOldestFirst)
	fill(buffers, 10, 0, 1)
	fill(buffers, 3, 3)
	fill(buffers, 7, 2)

	// WHEN participants are selected
	got := s.SelectParticipants()

	// THEN the two oldest links are used, reported by index
	assert.Equal(t, []LeafID{2, 3}, got)
}

func TestSwitchScheduler_ConnectSize_LowestIndexSelection(t *testing.T) {
	s, buffers := newTestScheduler(t, 4, 1, -1, 2, SelectionLowestIndex)
	fill(buffers, 10, 0, 1)
	fill(buffers, 3, 3)
	assert.Equal(t, []LeafID{0, 1}, s.SelectParticipants())
}

func TestSwitchScheduler_ElevenLeaves_TiesFollowNumericIndex(t *testing.T) {
	// GIVEN leaves node1..node11, all holding qubits created at the same instant
	s, buffers := newTestScheduler(t, 11, 1, -1, 3, SelectionOldestFirst)
	for i := 0; i < 11; i++ {
		fill(buffers, 0, LeafID(i))
	}

	// WHEN three participants are chosen
	got := s.SelectParticipants()

	// THEN they are node1, node2, node3 (lexicographic order would give node1, node10, node11)
	require.Len(t, got, 3)
	names := make([]string, len(got))
	for i, id := range got {
		names[i] = DefaultLeafName(id)
	}
	assert.Equal(t, []string{"node1", "node2", "node3"}, names)
}

func TestSwitchScheduler_ElevenLeaves_ParticipantsSortedNumerically(t *testing.T) {
	// GIVEN only node2, node10 and node11 hold qubits
	s, buffers := newTestScheduler(t, 11, 1, -1, 3, SelectionOldestFirst)
	fill(buffers, 9, 9)
	fill(buffers, 10, 10)
	fill(buffers, 11, 1)

	// WHEN a state fires
	ev := s.Evaluate(20)

	// THEN participants are listed as node2, node10, node11
	require.Len(t, ev.Decisions, 1)
	assert.Equal(t, []LeafID{1, 9, 10}, ev.Decisions[0].Record.Participants)
}

func TestSwitchScheduler_Evaluate_ExpiresBeforeSynthesis(t *testing.T) {
	// GIVEN a cutoff of 100 ticks and a stale qubit on leaf 0
	buffers := []*LeafBuffer{NewLeafBuffer(0, 2), NewLeafBuffer(1, 2)}
	synth := NewStateSynthesizer(buffers, NoiseModel{}, quantum.PauliFrameBackend{})
	s := NewSwitchScheduler(buffers, -1, 0, SelectionOldestFirst, 100, synth)
	fill(buffers, 0, 0)
	fill(buffers, 150, 1)

	// WHEN evaluated at t=160
	ev := s.Evaluate(160)

	// THEN the stale qubit is dropped and nothing fires
	require.Len(t, ev.Expired, 1)
	assert.Equal(t, LeafID(0), ev.Expired[0].Leaf)
	assert.Empty(t, ev.Decisions)
	assert.Equal(t, 1, buffers[1].Len())
}

func TestSwitchScheduler_Evaluate_ReportsCandidates(t *testing.T) {
	s, buffers := newTestScheduler(t, 3, 2, -1, 2, SelectionOldestFirst)
	fill(buffers, 0, 0, 1, 2)
	ev := s.Evaluate(10)

	// first decision saw all three leaves, two of them selected
	require.NotEmpty(t, ev.Decisions)
	cands := ev.Decisions[0].Candidates
	require.Len(t, cands, 3)
	selected := 0
	for _, c := range cands {
		assert.Equal(t, int64(10), c.OldestAge)
		if c.Selected {
			selected++
		}
	}
	assert.Equal(t, 2, selected)
}

func TestNewSwitchScheduler_RejectsBadConnectSize(t *testing.T) {
	buffers := []*LeafBuffer{NewLeafBuffer(0, 1), NewLeafBuffer(1, 1)}
	synth := NewStateSynthesizer(buffers, NoiseModel{}, quantum.PauliFrameBackend{})
	assert.Panics(t, func() { NewSwitchScheduler(buffers, -1, 3, SelectionOldestFirst, 0, synth) })
	assert.Panics(t, func() { NewSwitchScheduler(buffers, -1, 1, SelectionOldestFirst, 0, synth) })
}
