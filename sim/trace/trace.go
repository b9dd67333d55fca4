package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every synthesis and discard decision.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects decision records during a switch simulation.
type SimulationTrace struct {
	Config    TraceConfig
	Syntheses []SynthesisRecord
	Discards  []DiscardRecord
	NumLeaves int
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig, numLeaves int) *SimulationTrace {
	return &SimulationTrace{
		Config:    config,
		Syntheses: make([]SynthesisRecord, 0),
		Discards:  make([]DiscardRecord, 0),
		NumLeaves: numLeaves,
	}
}

// RecordSynthesis appends a synthesis decision record.
func (st *SimulationTrace) RecordSynthesis(record SynthesisRecord) {
	st.Syntheses = append(st.Syntheses, record)
}

// RecordDiscard appends a discard record.
func (st *SimulationTrace) RecordDiscard(record DiscardRecord) {
	st.Discards = append(st.Discards, record)
}
