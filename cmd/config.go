package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/enemcast/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set enemcast configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "dataset_path: %s\n", cfg.DatasetPath)
		if cfg.DatasetDelimiter != "" {
			fmt.Fprintf(w, "dataset_delimiter: %q\n", cfg.DatasetDelimiter)
		}
		fmt.Fprintf(w, "dataset_table: %s\n", cfg.DatasetTable)
		fmt.Fprintf(w, "neighbors: %d\n", cfg.Neighbors)
		fmt.Fprintf(w, "test_size: %.3f\n", cfg.TestSize)
		fmt.Fprintf(w, "seed: %d\n", cfg.Seed)
		fmt.Fprintf(w, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(w, "output_format: %s\n", cfg.OutputFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long:  "Set a config value and save to disk. Keys: " + strings.Join(cfgpkg.Keys, ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// Start from the file and env only, so global flag overrides are not persisted.
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		switch key {
		case "dataset_path":
			c.DatasetPath = val
		case "dataset_delimiter":
			switch val {
			case "", "auto", ",", ";", "tab":
				c.DatasetDelimiter = val
			default:
				return fmt.Errorf("invalid dataset_delimiter: %s (use auto, ',', ';' or tab)", val)
			}
		case "dataset_table":
			c.DatasetTable = val
		case "neighbors":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for neighbors: %v", val)
			}
			c.Neighbors = i
		case "test_size":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f <= 0 || f >= 1 {
				return fmt.Errorf("invalid float for test_size: %v (must be in (0, 1))", val)
			}
			c.TestSize = f
		case "seed":
			u, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int for seed: %w", err)
			}
			c.Seed = u
		case "log_level":
			c.LogLevel = strings.ToLower(val)
		case "output_format":
			c.OutputFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
