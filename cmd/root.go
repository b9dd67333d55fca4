package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/inference-sim/qswitch-sim/sim"
	"github.com/inference-sim/qswitch-sim/sim/experiment"
	"github.com/inference-sim/qswitch-sim/sim/trace"
)

var (
	// CLI flags for the switch scenario
	configPath      string  // YAML scenario file
	seed            int64   // Master seed of the first run
	runtimeSeconds  float64 // Simulated seconds
	maxEvents       int64   // Generation events per run
	numLeaves       int     // Leaves when the scenario does not list them
	bufferSize      int     // Default per-leaf capacity
	connectSize     int     // Leaves per state, 0 = all
	serverLeaf      int     // Index of the server leaf
	rate            float64 // Default per-link generation rate (Hz)
	population      float64 // Bright-state population
	decayRate       float64 // Buffer depolarization rate (1/s)
	cutoff          float64 // Memory cutoff (s)
	expiryRate      float64 // Exponential qubit lifetime rate (1/s)
	process         string  // Arrival process
	selection       string  // Participant selection policy
	backendName     string  // Quantum backend
	rngName         string  // RNG algorithm
	substrateName   string  // Event substrate
	traceLevel      string  // Decision trace level
	logLevel        string  // Log verbosity level
	runs            int     // Repetitions with consecutive seeds
	csvPath         string  // Aggregate CSV output
	recordsOutPath  string  // msgpack dump of raw state records
	dbPath          string  // SQLite result store
	summarizeTraces bool    // Print the decision trace summary
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "qswitch-sim",
	Short: "Discrete-event simulator for a quantum entanglement switch",
}

// runCmd executes one scenario, optionally repeated with consecutive seeds
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a switch scenario",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg, err := buildRunConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		startTime := time.Now()
		agg, results, err := experiment.RunMultiple("run", cfg, runs)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		if runs == 1 {
			results[0].Summary.Print(os.Stdout)
			if summarizeTraces && results[0].Trace != nil {
				printTraceSummary(os.Stdout, trace.Summarize(results[0].Trace))
			}
		} else {
			printAggregate(os.Stdout, agg)
		}
		if err := writeOutputs([]experiment.Aggregate{agg}, map[string][]*sim.Result{"run": results}); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime).Round(time.Millisecond))
	},
}

// buildRunConfig loads the scenario file (if any) and applies flags the user set explicitly.
// Flags never overwrite YAML values with their defaults.
func buildRunConfig(cmd *cobra.Command) (sim.Config, error) {
	var cfg sim.Config
	if configPath != "" {
		loaded, err := sim.LoadConfig(configPath)
		if err != nil {
			return sim.Config{}, err
		}
		cfg = loaded
	} else {
		cfg = sim.Config{
			Runtime:    runtimeSeconds,
			NumLeaves:  numLeaves,
			BufferSize: bufferSize,
			Generation: sim.GenerationConfig{Rate: rate},
			Seed:       seed,
		}
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("runtime") {
		cfg.Runtime = runtimeSeconds
	}
	if flags.Changed("max-events") {
		cfg.MaxEvents = maxEvents
	}
	if flags.Changed("num-leaves") {
		cfg.NumLeaves = numLeaves
	}
	if flags.Changed("buffer-size") {
		cfg.BufferSize = bufferSize
	}
	if flags.Changed("connect-size") {
		cfg.ConnectSize = connectSize
	}
	if flags.Changed("server-leaf") {
		leaf := serverLeaf
		cfg.ServerLeaf = &leaf
	}
	if flags.Changed("rate") {
		cfg.Generation.Rate = rate
	}
	if flags.Changed("bright-state-population") {
		cfg.Generation.BrightStatePopulation = population
	}
	if flags.Changed("process") {
		cfg.Generation.Process = process
	}
	if flags.Changed("decay-rate") {
		cfg.Noise.DecayRate = decayRate
	}
	if flags.Changed("cutoff") {
		cfg.Noise.Cutoff = cutoff
	}
	if flags.Changed("expiry-rate") {
		cfg.Noise.ExpiryRate = expiryRate
	}
	if flags.Changed("selection") {
		cfg.Selection = selection
	}
	if flags.Changed("backend") {
		cfg.Backend = backendName
	}
	if flags.Changed("rng") {
		cfg.RNG = rngName
	}
	if flags.Changed("substrate") {
		cfg.Substrate = substrateName
	}
	if flags.Changed("trace-level") {
		cfg.Trace = traceLevel
	}
	if runs < 1 {
		return sim.Config{}, fmt.Errorf("--runs must be >= 1, got %d", runs)
	}
	return cfg, nil
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// writeOutputs writes the optional CSV, record dump and result store.
func writeOutputs(aggs []experiment.Aggregate, results map[string][]*sim.Result) error {
	if csvPath != "" {
		f, err := os.Create(csvPath)
		if err != nil {
			return fmt.Errorf("creating CSV: %w", err)
		}
		if err := experiment.WriteCSV(f, aggs); err != nil {
			f.Close()
			return fmt.Errorf("writing CSV: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		logrus.Infof("Aggregates written to %s", csvPath)
	}
	if recordsOutPath != "" {
		f, err := os.Create(recordsOutPath)
		if err != nil {
			return fmt.Errorf("creating record dump: %w", err)
		}
		for _, agg := range aggs {
			if err := experiment.WriteRecords(f, results[agg.Scenario]); err != nil {
				f.Close()
				return err
			}
		}
		if err := f.Close(); err != nil {
			return err
		}
		logrus.Infof("State records written to %s", recordsOutPath)
	}
	if dbPath != "" {
		store, err := experiment.OpenStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		ctx := context.Background()
		for _, agg := range aggs {
			for _, r := range results[agg.Scenario] {
				if err := store.SaveRun(ctx, agg.Scenario, r); err != nil {
					return err
				}
			}
			if err := store.SaveAggregate(ctx, agg); err != nil {
				return err
			}
		}
		logrus.Infof("Results stored in %s (sweep %s)", dbPath, store.SweepID())
	}
	return nil
}

func printAggregate(w io.Writer, a experiment.Aggregate) {
	fmt.Fprintf(w, "=== Scenario %s (%d runs from seed %d) ===\n", a.Scenario, a.Runs, a.Seed)
	fmt.Fprintf(w, "Capacity             : %.4f ± %.4f states/s\n", a.Capacity.Mean, a.Capacity.StdErr)
	fmt.Fprintf(w, "Mean Fidelity        : %.6f ± %.6f\n", a.Fidelity.Mean, a.Fidelity.StdErr)
	if a.AnalyticalModel != experiment.ModelNone {
		fmt.Fprintf(w, "Analytical Capacity  : %.4f states/s (%s)\n", a.AnalyticalCapacity, a.AnalyticalModel)
	}
	for i, r := range a.LeafStateRates {
		fmt.Fprintf(w, "  %-8s state rate: %.4f ± %.4f /s\n", sim.DefaultLeafName(sim.LeafID(i)), r.Mean, r.StdErr)
	}
}

func printTraceSummary(w io.Writer, ts *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Decision Trace ===")
	fmt.Fprintf(w, "Syntheses            : %d\n", ts.TotalSyntheses)
	fmt.Fprintf(w, "Discards             : %d (overflow %d, expired %d)\n", ts.TotalDiscards, ts.OverflowCount, ts.ExpiredCount)
	fmt.Fprintf(w, "Mean Participants    : %.3f\n", ts.MeanParticipants)
	fmt.Fprintf(w, "Mean Candidates      : %.3f\n", ts.MeanCandidates)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	registerRunFlags(runCmd)

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}

// registerRunFlags defines the scenario flags on cmd, resetting their variables to defaults.
func registerRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configPath, "config", "", "YAML scenario file; flags set explicitly override its values")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed of the first run")
	cmd.Flags().Float64Var(&runtimeSeconds, "runtime", 1, "Simulated seconds per run")
	cmd.Flags().Int64Var(&maxEvents, "max-events", 0, "Stop after this many generation events (0 = runtime only)")
	cmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// switch topology
	cmd.Flags().IntVar(&numLeaves, "num-leaves", 3, "Number of leaves")
	cmd.Flags().IntVar(&bufferSize, "buffer-size", 1, "Qubits buffered per leaf")
	cmd.Flags().IntVar(&connectSize, "connect-size", 0, "Leaves fused into each state (0 = all)")
	cmd.Flags().IntVar(&serverLeaf, "server-leaf", 0, "Index of the leaf that takes part in every state")
	cmd.Flags().StringVar(&selection, "selection", sim.SelectionOldestFirst, "Participant selection (oldest-first, lowest-index)")

	// generation and noise
	cmd.Flags().Float64Var(&rate, "rate", 1000, "Per-link generation rate (Hz)")
	cmd.Flags().Float64Var(&population, "bright-state-population", 0, "Bright-state population alpha")
	cmd.Flags().StringVar(&process, "process", sim.ProcessPoisson, "Arrival process (poisson, constant)")
	cmd.Flags().Float64Var(&decayRate, "decay-rate", 0, "Buffer depolarization rate (1/s)")
	cmd.Flags().Float64Var(&cutoff, "cutoff", 0, "Discard qubits buffered longer than this (s)")
	cmd.Flags().Float64Var(&expiryRate, "expiry-rate", 0, "Exponential qubit lifetime rate (1/s)")

	// engine
	cmd.Flags().StringVar(&backendName, "backend", "pauli-frame", "Quantum backend (pauli-frame, density-matrix)")
	cmd.Flags().StringVar(&rngName, "rng", sim.RNGMathRand, "RNG algorithm (math-rand, mrg32k3a)")
	cmd.Flags().StringVar(&substrateName, "substrate", sim.SubstrateHeap, "Event substrate (heap, evtm)")
	cmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Decision trace level (none, decisions)")
	cmd.Flags().BoolVar(&summarizeTraces, "summarize-trace", false, "Print the decision trace summary")

	// outputs
	cmd.Flags().IntVar(&runs, "runs", 1, "Repetitions with seeds seed, seed+1, ...")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write the aggregate to this CSV file")
	cmd.Flags().StringVar(&recordsOutPath, "records-out", "", "Write raw state records (msgpack) to this file")
	cmd.Flags().StringVar(&dbPath, "db", "", "Store results in this SQLite database")
}
