package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/qswitch-sim/sim/experiment"
)

var (
	sweepPath string
	sweepRuns int
)

// sweepCmd runs every scenario of a sweep file and writes the aggregates
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a parameter sweep and aggregate each scenario",
	Long: "Run every scenario of a sweep YAML file (a base config plus named overrides) with consecutive " +
		"seeds, print one line per scenario and optionally write CSV, msgpack records and a SQLite store.",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		if sweepPath == "" {
			logrus.Fatalf("--config is required")
		}
		sweep, err := experiment.LoadSweep(sweepPath)
		if err != nil {
			logrus.Fatalf("Invalid sweep: %v", err)
		}
		if cmd.Flags().Changed("runs") {
			if sweepRuns < 1 {
				logrus.Fatalf("--runs must be >= 1, got %d", sweepRuns)
			}
			sweep.Runs = sweepRuns
		}

		aggs, results, err := sweep.Run()
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}

		fmt.Fprintf(os.Stdout, "%-20s %6s %14s %12s %14s %12s\n", "scenario", "runs", "capacity", "±", "fidelity", "analytical")
		for _, a := range aggs {
			fmt.Fprintf(os.Stdout, "%-20s %6d %14.4f %12.4f %14.6f %12.4f\n",
				a.Scenario, a.Runs, a.Capacity.Mean, a.Capacity.StdErr, a.Fidelity.Mean, a.AnalyticalCapacity)
		}
		if err := writeOutputs(aggs, results); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepPath, "config", "", "Sweep YAML file")
	sweepCmd.Flags().IntVar(&sweepRuns, "runs", 1, "Override the runs per scenario of the sweep file")
	sweepCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	sweepCmd.Flags().StringVar(&csvPath, "csv", "", "Write aggregates to this CSV file")
	sweepCmd.Flags().StringVar(&recordsOutPath, "records-out", "", "Write raw state records (msgpack) to this file")
	sweepCmd.Flags().StringVar(&dbPath, "db", "", "Store results in this SQLite database")

	rootCmd.AddCommand(sweepCmd)
}
