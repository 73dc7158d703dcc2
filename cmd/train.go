package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/enemcast/internal/dataset"
	"github.com/spf13/cobra"
)

type trainSummary struct {
	Dataset  string   `json:"dataset" yaml:"dataset"`
	Rows     int      `json:"rows" yaml:"rows"`
	Dropped  int      `json:"dropped" yaml:"dropped"`
	Features int      `json:"features" yaml:"features"`
	K        int      `json:"k" yaml:"k"`
	Subjects []string `json:"subjects" yaml:"subjects"`
	Elapsed  string   `json:"elapsed" yaml:"elapsed"`
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit the encoder, scaler and regressors on the dataset and report the result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		b, err := trainBundle(cmd.Context())
		if err != nil {
			return err
		}
		sum := trainSummary{
			Dataset:  cfg.DatasetPath,
			Rows:     b.Rows(),
			Dropped:  b.Dropped(),
			Features: b.Schema().Len(),
			K:        b.Bank().K(),
			Subjects: b.Bank().Subjects(),
			Elapsed:  time.Since(start).Round(time.Millisecond).String(),
		}
		return render(cmd.OutOrStdout(), sum, func() string {
			var sb strings.Builder
			sb.WriteString(fmt.Sprintf("✓ Trained %d regressors on %d rows (%d dropped)\n", len(sum.Subjects), sum.Rows, sum.Dropped))
			sb.WriteString(fmt.Sprintf("  Features: %d\n", sum.Features))
			sb.WriteString(fmt.Sprintf("  Neighbors: %d\n", sum.K))
			shorts := make([]string, 0, len(dataset.Subjects))
			for _, s := range dataset.Subjects {
				shorts = append(shorts, s.Short())
			}
			sb.WriteString(fmt.Sprintf("  Subjects: %s\n", strings.Join(shorts, ", ")))
			sb.WriteString(fmt.Sprintf("  Elapsed: %s\n", sum.Elapsed))
			return sb.String()
		})
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
}
