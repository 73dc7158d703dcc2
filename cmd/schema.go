package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/enemcast/internal/features"
	"github.com/spf13/cobra"
)

type schemaColumn struct {
	Index int     `json:"index" yaml:"index"`
	Name  string  `json:"name" yaml:"name"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Std   float64 `json:"std" yaml:"std"`
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the one-hot columns derived from the dataset with their scaling statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := loadRecords(cmd.Context())
		if err != nil {
			return err
		}
		s, err := features.FitSchema(recs)
		if err != nil {
			return err
		}
		m, err := features.EncodeTraining(recs, s)
		if err != nil {
			return err
		}
		sc, err := features.FitScaler(m.X)
		if err != nil {
			return err
		}
		mean, std := sc.Mean(), sc.Std()
		cols := make([]schemaColumn, 0, s.Len())
		for i, name := range s.Columns() {
			cols = append(cols, schemaColumn{Index: i, Name: name, Mean: mean[i], Std: std[i]})
		}
		return render(cmd.OutOrStdout(), cols, func() string {
			var sb strings.Builder
			sb.WriteString(fmt.Sprintf("[SCHEMA] %d columns\n", len(cols)))
			for _, c := range cols {
				note := ""
				if c.Std == 0 {
					note = " (constant)"
				}
				sb.WriteString(fmt.Sprintf("%3d  %-28s mean %.4f  std %.4f%s\n", c.Index, c.Name, c.Mean, c.Std, note))
			}
			return sb.String()
		})
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
