package trace

import (
	"math"
	"testing"
)

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions}, 3)

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalSyntheses != 0 || summary.TotalDiscards != 0 {
		t.Errorf("expected zero totals, got %d syntheses and %d discards", summary.TotalSyntheses, summary.TotalDiscards)
	}
	if summary.MeanFidelity != 0 || summary.MeanParticipants != 0 {
		t.Error("expected zero means")
	}
	if len(summary.ParticipationCount) != 0 || len(summary.DiscardCount) != 0 {
		t.Error("expected empty distributions")
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	// GIVEN no trace at all
	// WHEN summarized
	summary := Summarize(nil)

	// THEN a usable zero summary is returned
	if summary == nil {
		t.Fatal("expected non-nil summary")
	}
	if summary.ParticipationCount == nil {
		t.Error("expected initialized participation map")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with syntheses and discards
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions}, 3)
	st.RecordSynthesis(SynthesisRecord{Participants: []int{0, 1}, Fidelity: 0.8,
		Candidates: []CandidateLeaf{{Leaf: 0}, {Leaf: 1}, {Leaf: 2}}})
	st.RecordSynthesis(SynthesisRecord{Participants: []int{0, 2}, Fidelity: 0.6,
		Candidates: []CandidateLeaf{{Leaf: 0}, {Leaf: 2}}})
	st.RecordDiscard(DiscardRecord{Leaf: 1, Reason: ReasonOverflow})
	st.RecordDiscard(DiscardRecord{Leaf: 1, Reason: ReasonExpired})
	st.RecordDiscard(DiscardRecord{Leaf: 2, Reason: ReasonOverflow})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts and means match
	if summary.TotalSyntheses != 2 {
		t.Errorf("expected 2 syntheses, got %d", summary.TotalSyntheses)
	}
	if summary.OverflowCount != 2 || summary.ExpiredCount != 1 {
		t.Errorf("expected 2 overflow and 1 expired, got %d and %d", summary.OverflowCount, summary.ExpiredCount)
	}
	if math.Abs(summary.MeanFidelity-0.7) > 1e-12 {
		t.Errorf("expected mean fidelity 0.7, got %v", summary.MeanFidelity)
	}
	if summary.MeanParticipants != 2 {
		t.Errorf("expected 2 participants per state, got %v", summary.MeanParticipants)
	}
	if summary.MeanCandidates != 2.5 {
		t.Errorf("expected 2.5 candidates per decision, got %v", summary.MeanCandidates)
	}
	if summary.ParticipationCount[0] != 2 || summary.ParticipationCount[1] != 1 || summary.ParticipationCount[2] != 1 {
		t.Errorf("unexpected participation %v", summary.ParticipationCount)
	}
	if summary.DiscardCount[1] != 2 || summary.DiscardCount[2] != 1 {
		t.Errorf("unexpected discards %v", summary.DiscardCount)
	}
}
