package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/enemcast/internal/predictor"
	"github.com/spf13/cobra"
)

var (
	evalTestSize   float64
	evalSeed       uint64
	evalOutputPath string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Hold out part of the dataset, report errors and a sample prediction",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := loadRecords(cmd.Context())
		if err != nil {
			return err
		}
		opts := predictor.EvalOptions{K: cfg.Neighbors, TestSize: cfg.TestSize, Seed: cfg.Seed}
		if cmd.Flags().Changed("test-size") {
			opts.TestSize = evalTestSize
		}
		if cmd.Flags().Changed("seed") {
			opts.Seed = evalSeed
		}
		ev, err := predictor.Evaluate(cmd.Context(), recs, opts)
		if err != nil {
			return err
		}
		return writeOrRender(cmd.OutOrStdout(), evalOutputPath, ev, func() string {
			var sb strings.Builder
			sb.WriteString(fmt.Sprintf("Train rows: %d, test rows: %d (seed %d)\n\n", ev.TrainRows, ev.TestRows, opts.Seed))
			if ev.Sample != nil {
				sb.WriteString(ev.Sample.Text())
				sb.WriteString("\n")
			}
			sb.WriteString("[HOLD-OUT ERROR]\n")
			for _, m := range ev.Metrics {
				sb.WriteString(fmt.Sprintf("- %-8s MAE %.2f  RMSE %.2f\n", m.Subject.Short(), m.MAE, m.RMSE))
			}
			return sb.String()
		})
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().Float64Var(&evalTestSize, "test-size", 0.2, "fraction of rows held out (overrides config)")
	evaluateCmd.Flags().Uint64Var(&evalSeed, "seed", 42, "shuffle seed (overrides config)")
	evaluateCmd.Flags().StringVarP(&evalOutputPath, "output", "o", "", "write the evaluation to a file instead of stdout")
}
