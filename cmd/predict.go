package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/enemcast/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	predIncome      string
	predMotherEdu   string
	predSchool      string
	predRace        string
	predState       string
	predReference   string
	predOutputPath  string
	predListOptions bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the five ENEM scores for a student profile",
	Long: `Predict the five ENEM scores for a student profile and compare each one with
the mean of the most similar students. Profile values may be dataset codes or
the questionnaire labels shown by --list-options.`,
	Example: `  enemcast predict --income B --mother-education E --school 2 --race 3 --state CE
  enemcast predict --income "Nenhuma Renda" --mother-education "Médio Completo" \
    --school Pública --race Parda --state SP --reference MT=612.5,RED=780`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if predListOptions {
			listOptions(cmd.OutOrStdout())
			return nil
		}
		ref, err := parseReference(predReference)
		if err != nil {
			return err
		}
		profile := dataset.Profile{}
		for field, v := range map[string]string{
			dataset.FieldIncome:          predIncome,
			dataset.FieldMotherEducation: predMotherEdu,
			dataset.FieldSchoolType:      predSchool,
			dataset.FieldRace:            predRace,
			dataset.FieldState:           predState,
		} {
			if strings.TrimSpace(v) == "" {
				continue
			}
			profile[field] = dataset.ResolveOption(field, v)
		}
		b, err := trainBundle(cmd.Context())
		if err != nil {
			return err
		}
		rep, err := b.Analyze(cmd.Context(), profile, ref)
		if err != nil {
			return err
		}
		return writeOrRender(cmd.OutOrStdout(), predOutputPath, rep, rep.Text)
	},
}

func listOptions(w io.Writer) {
	for _, f := range []struct {
		flag  string
		field string
	}{
		{"--income", dataset.FieldIncome},
		{"--mother-education", dataset.FieldMotherEducation},
		{"--school", dataset.FieldSchoolType},
		{"--race", dataset.FieldRace},
	} {
		fmt.Fprintf(w, "%s (%s)\n", f.flag, f.field)
		for _, o := range dataset.FieldOptions(f.field) {
			fmt.Fprintf(w, "  %-3s %s\n", o.Code, o.Label)
		}
	}
	fmt.Fprintf(w, "--state (%s)\n", dataset.FieldState)
	fmt.Fprintf(w, "  %s\n", strings.Join(dataset.States, ", "))
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().StringVar(&predIncome, "income", "", "family income bracket (Q006)")
	predictCmd.Flags().StringVar(&predMotherEdu, "mother-education", "", "mother's education (Q002)")
	predictCmd.Flags().StringVar(&predSchool, "school", "", "school type (TP_ESCOLA)")
	predictCmd.Flags().StringVar(&predRace, "race", "", "race (TP_COR_RACA)")
	predictCmd.Flags().StringVar(&predState, "state", "", "state of residence, abbreviation or IBGE code")
	predictCmd.Flags().StringVar(&predReference, "reference", "", "known scores to show next to predictions, e.g. MT=612.5,CN=540")
	predictCmd.Flags().StringVarP(&predOutputPath, "output", "o", "", "write the report to a file instead of stdout")
	predictCmd.Flags().BoolVar(&predListOptions, "list-options", false, "list accepted profile values and exit")
}
