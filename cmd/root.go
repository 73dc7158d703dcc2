package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/enemcast/internal/config"
	"github.com/KaramelBytes/enemcast/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
	// Overrides for config values
	flagDataset   string
	flagFormat    string
	flagNeighbors int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "enemcast",
	Short: "Predict ENEM scores from a student profile with nearest neighbors",
	Long: `enemcast predicts the five ENEM scores of a student from socioeconomic
attributes by averaging the scores of the most similar students in a historical
dataset, and compares each prediction with that peer group.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.enemcast/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagDataset, "dataset", "", "dataset file, CSV or SQLite (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "", "output format: text|json|yaml (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagNeighbors, "neighbors", 0, "number of neighbors (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{Neighbors: 9, TestSize: 0.2, Seed: 42, LogLevel: "info", OutputFormat: "text", DatasetTable: "microdados"}
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("dataset") && flagDataset != "" {
		cfg.DatasetPath = flagDataset
	}
	if f.Changed("format") && flagFormat != "" {
		cfg.OutputFormat = flagFormat
	}
	if f.Changed("neighbors") && flagNeighbors > 0 {
		cfg.Neighbors = flagNeighbors
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	logging.SetDefaultCLILogger(level)
}
