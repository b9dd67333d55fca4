package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/inference-sim/qswitch-sim/sim"
)

var (
	capacityRates       []float64
	capacityDistances   []float64
	capacityPopulation  float64
	capacityBuffer      int
	capacityDecoherence float64
	capacityConnectProb float64
	capacityPartySize   int
)

// capacityCmd evaluates the closed-form capacities without simulating
var capacityCmd = &cobra.Command{
	Use:   "capacity",
	Short: "Compute analytical switch capacity",
	Long: "Compute the capacity of a switch from its per-user rates (or fiber distances). Bipartite states use " +
		"the buffered Markov chain; larger states use the unbounded-buffer limit and need identical rates.",
	Run: func(cmd *cobra.Command, args []string) {
		rates, err := capacityInputRates(capacityRates, capacityDistances, capacityPopulation)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := printCapacity(os.Stdout, rates); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// capacityInputRates returns the per-user rates, derived from distances when given.
func capacityInputRates(rates, distances []float64, population float64) ([]float64, error) {
	if len(rates) > 0 && len(distances) > 0 {
		return nil, fmt.Errorf("--rates and --distances are mutually exclusive")
	}
	if len(distances) > 0 {
		if population <= 0 || population > 1 {
			return nil, fmt.Errorf("--bright-state-population must be in (0, 1] with --distances, got %g", population)
		}
		out := make([]float64, len(distances))
		for i, d := range distances {
			out[i] = population * sim.VardoyanDistanceToRate(d)
		}
		return out, nil
	}
	if len(rates) < 2 {
		return nil, fmt.Errorf("need at least 2 users, got %d", len(rates))
	}
	for _, r := range rates {
		if r <= 0 {
			return nil, fmt.Errorf("rates must be positive, got %g", r)
		}
	}
	return rates, nil
}

func printCapacity(w io.Writer, rates []float64) error {
	if capacityConnectProb <= 0 || capacityConnectProb > 1 {
		return fmt.Errorf("--connect-probability must be in (0, 1], got %g", capacityConnectProb)
	}
	if capacityPartySize < 2 || capacityPartySize > len(rates) {
		return fmt.Errorf("--n must be in [2, %d], got %d", len(rates), capacityPartySize)
	}
	for i, r := range rates {
		fmt.Fprintf(w, "%-8s rate: %.6g Hz\n", sim.DefaultLeafName(sim.LeafID(i)), r)
	}
	if capacityPartySize == 2 {
		if capacityBuffer < 1 {
			return fmt.Errorf("--buffer-size must be >= 1, got %d", capacityBuffer)
		}
		c := sim.AnalyticalCapacityBipartite(rates, capacityBuffer, capacityDecoherence, capacityConnectProb)
		fmt.Fprintf(w, "Capacity (bipartite, B=%d): %.6g states/s\n", capacityBuffer, c)
		return nil
	}
	for _, r := range rates[1:] {
		if r != rates[0] {
			return fmt.Errorf("the %d-partite capacity needs identical rates", capacityPartySize)
		}
	}
	c := sim.AnalyticalCapacityHomogeneous(capacityConnectProb, rates[0], len(rates), capacityPartySize)
	fmt.Fprintf(w, "Capacity (homogeneous, n=%d, unbounded buffer): %.6g states/s\n", capacityPartySize, c)
	return nil
}

func init() {
	capacityCmd.Flags().Float64SliceVar(&capacityRates, "rates", nil, "Comma-separated per-user generation rates (Hz)")
	capacityCmd.Flags().Float64SliceVar(&capacityDistances, "distances", nil, "Comma-separated per-user fiber lengths (km)")
	capacityCmd.Flags().Float64Var(&capacityPopulation, "bright-state-population", 0.1, "Bright-state population used with --distances")
	capacityCmd.Flags().IntVar(&capacityBuffer, "buffer-size", 1, "Buffer size per user (bipartite only)")
	capacityCmd.Flags().Float64Var(&capacityDecoherence, "decoherence-rate", 0, "Exponential decoherence rate alpha (1/s, bipartite only)")
	capacityCmd.Flags().Float64Var(&capacityConnectProb, "connect-probability", 1, "Success probability q of the fusion")
	capacityCmd.Flags().IntVar(&capacityPartySize, "n", 2, "Users per state")

	rootCmd.AddCommand(capacityCmd)
}
