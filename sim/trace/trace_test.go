package trace

import (
	"testing"
)

func TestSimulationTrace_RecordSynthesis_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions}, 3)

	// WHEN a synthesis record is recorded
	st.RecordSynthesis(SynthesisRecord{
		Clock:        1000,
		Participants: []int{0, 2},
		Fidelity:     0.9,
		Reason:       "oldest-first",
	})

	// THEN the trace contains one synthesis record with correct data
	if len(st.Syntheses) != 1 {
		t.Fatalf("expected 1 synthesis, got %d", len(st.Syntheses))
	}
	if st.Syntheses[0].Clock != 1000 {
		t.Errorf("expected clock 1000, got %d", st.Syntheses[0].Clock)
	}
	if len(st.Syntheses[0].Participants) != 2 {
		t.Errorf("expected 2 participants, got %d", len(st.Syntheses[0].Participants))
	}
}

func TestSimulationTrace_RecordDiscard_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions}, 2)

	// WHEN a discard record is recorded
	st.RecordDiscard(DiscardRecord{Clock: 2000, Leaf: 1, Age: 500, Reason: ReasonOverflow})

	// THEN the trace contains one discard record with correct data
	if len(st.Discards) != 1 {
		t.Fatalf("expected 1 discard, got %d", len(st.Discards))
	}
	if st.Discards[0].Leaf != 1 || st.Discards[0].Reason != ReasonOverflow {
		t.Errorf("unexpected discard record %+v", st.Discards[0])
	}
}

func TestSimulationTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	// GIVEN a trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions}, 2)

	// WHEN multiple records are added
	st.RecordSynthesis(SynthesisRecord{Clock: 100, Participants: []int{0, 1}})
	st.RecordSynthesis(SynthesisRecord{Clock: 200, Participants: []int{0, 1}})
	st.RecordDiscard(DiscardRecord{Clock: 150, Leaf: 0, Reason: ReasonExpired})

	// THEN order is preserved
	if len(st.Syntheses) != 2 {
		t.Fatalf("expected 2 syntheses, got %d", len(st.Syntheses))
	}
	if st.Syntheses[0].Clock != 100 || st.Syntheses[1].Clock != 200 {
		t.Error("synthesis order not preserved")
	}
	if len(st.Discards) != 1 || st.Discards[0].Clock != 150 {
		t.Error("discard record mismatch")
	}
}

func TestIsValidTraceLevel_ValidLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"decisions", true},
		{"", true}, // empty defaults to none
		{"detailed", false},
		{"foobar", false},
		{"NONE", false}, // case-sensitive
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := IsValidTraceLevel(tt.level); got != tt.valid {
				t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
			}
		})
	}
}
