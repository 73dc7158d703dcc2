package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/enemcast/internal/dataset"
	"github.com/spf13/cobra"
)

var describeTop int

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Summarize the dataset: row counts, score statistics and category frequencies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := loadRecords(cmd.Context())
		if err != nil {
			return err
		}
		sum := dataset.Summarize(recs)
		return render(cmd.OutOrStdout(), sum, func() string { return summaryText(sum, describeTop) })
	},
}

func summaryText(sum dataset.Summary, top int) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	b.WriteString(fmt.Sprintf("File: %s\n", cfg.DatasetPath))
	b.WriteString(fmt.Sprintf("Rows: %d (usable %d, dropped %d)\n\n", sum.Rows, sum.Valid, sum.Rows-sum.Valid))
	b.WriteString("[SCORES]\n")
	for _, s := range dataset.Subjects {
		ss, ok := sum.Scores[s]
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: mean %.2f, std %.2f, min %.2f, max %.2f\n", s, ss.Mean, ss.Std, ss.Min, ss.Max))
	}
	b.WriteString("\n[CATEGORIES]\n")
	for _, f := range dataset.Fields {
		counts := sum.Categories[f]
		if len(counts) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s:", f))
		for i, c := range counts {
			if top > 0 && i == top {
				b.WriteString(fmt.Sprintf(" ... (%d more)", len(counts)-top))
				break
			}
			v := c.Value
			if v == "" {
				v = "<blank>"
			}
			b.WriteString(fmt.Sprintf(" %s(%d)", v, c.Count))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().IntVar(&describeTop, "top", 10, "max categories listed per field (0 = all)")
}
