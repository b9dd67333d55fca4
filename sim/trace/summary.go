package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalSyntheses     int
	TotalDiscards      int
	OverflowCount      int
	ExpiredCount       int
	MeanFidelity       float64
	MeanParticipants   float64
	MeanCandidates     float64     // non-empty leaves seen per decision
	ParticipationCount map[int]int // leaf index → number of states it joined
	DiscardCount       map[int]int // leaf index → number of qubits dropped
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ParticipationCount: make(map[int]int),
		DiscardCount:       make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDiscards = len(st.Discards)
	for _, d := range st.Discards {
		summary.DiscardCount[d.Leaf]++
		switch d.Reason {
		case ReasonOverflow:
			summary.OverflowCount++
		case ReasonExpired:
			summary.ExpiredCount++
		}
	}

	summary.TotalSyntheses = len(st.Syntheses)
	if summary.TotalSyntheses > 0 {
		totalFidelity, totalParticipants, totalCandidates := 0.0, 0, 0
		for _, s := range st.Syntheses {
			totalFidelity += s.Fidelity
			totalParticipants += len(s.Participants)
			totalCandidates += len(s.Candidates)
			for _, leaf := range s.Participants {
				summary.ParticipationCount[leaf]++
			}
		}
		n := float64(summary.TotalSyntheses)
		summary.MeanFidelity = totalFidelity / n
		summary.MeanParticipants = float64(totalParticipants) / n
		summary.MeanCandidates = float64(totalCandidates) / n
	}

	return summary
}
