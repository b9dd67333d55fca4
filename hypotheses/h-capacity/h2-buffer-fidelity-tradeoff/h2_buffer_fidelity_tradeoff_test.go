package bufferfidelity

import (
	"fmt"
	"testing"

	"github.com/inference-sim/qswitch-sim/sim"
	"github.com/inference-sim/qswitch-sim/sim/experiment"
)

// =============================================================================
// H2: Larger Buffers Trade Fidelity For Capacity
//
// Hypothesis: With buffer depolarization (decay rate 100/s) and oldest-first
// consumption, growing the buffer from 1 to 10 raises capacity but lowers mean
// fidelity, because deeper queues hand older qubits to the switch.
//
// Refuted if: mean fidelity at B=10 is not lower than at B=1, or capacity at
// B=10 is not higher.
// =============================================================================

func TestH2_BufferFidelityTradeoff(t *testing.T) {
	if testing.Short() {
		t.Skip("long-running hypothesis sweep")
	}
	run := func(b int) experiment.Aggregate {
		cfg := sim.Config{
			Runtime:     2,
			Seed:        77,
			NumLeaves:   4,
			BufferSize:  b,
			ConnectSize: 2,
			Generation:  sim.GenerationConfig{Rate: 1000},
			Noise:       sim.NoiseConfig{DecayRate: 100},
		}
		agg, _, err := experiment.RunMultiple(fmt.Sprintf("b%d", b), cfg, 3)
		if err != nil {
			t.Fatal(err)
		}
		t.Logf("B=%-3d capacity %.2f ± %.2f  fidelity %.5f ± %.5f",
			b, agg.Capacity.Mean, agg.Capacity.StdErr, agg.Fidelity.Mean, agg.Fidelity.StdErr)
		return agg
	}

	small, large := run(1), run(10)
	if large.Fidelity.Mean >= small.Fidelity.Mean {
		t.Errorf("fidelity did not drop: B=1 %.5f, B=10 %.5f", small.Fidelity.Mean, large.Fidelity.Mean)
	}
	if large.Capacity.Mean <= small.Capacity.Mean {
		t.Errorf("capacity did not rise: B=1 %.2f, B=10 %.2f", small.Capacity.Mean, large.Capacity.Mean)
	}
}
