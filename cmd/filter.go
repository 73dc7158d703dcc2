package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/KaramelBytes/enemcast/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	filterStateCode string
	filterDelimiter string
	filterLatin1    bool
)

var filterCmd = &cobra.Command{
	Use:   "filter <microdata.csv> <output.csv>",
	Short: "Extract one state's students from the raw INEP microdata",
	Long: `Stream the raw ENEM microdata, keep the score and questionnaire columns and
the rows whose school municipality belongs to the given IBGE state code, and
write a UTF-8 comma-separated file usable as --dataset.`,
	Example: `  enemcast filter MICRODADOS_ENEM_2023.csv dados_ceara.csv --state-code 23`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := os.Open(args[0])
		if err != nil {
			return &dataset.DataLoadError{Path: args[0], Err: err}
		}
		defer in.Close()
		opt := dataset.FilterOptions{
			StateCode: filterStateCode,
			Latin1:    filterLatin1,
			Progress: func(read, kept int) {
				slog.Info("filtering", "read", read, "kept", kept)
			},
		}
		switch filterDelimiter {
		case "", ";":
			opt.Delimiter = ';'
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		default:
			return fmt.Errorf("unsupported --delimiter: %s", filterDelimiter)
		}

		// Rows go to a sibling temp file that only replaces the target once
		// the whole input was read and at least one row matched.
		tmp := args[1] + ".tmp"
		out, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		discard := func() {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
		w := bufio.NewWriter(out)
		st, err := dataset.FilterMicrodata(bufio.NewReaderSize(in, 1<<20), w, opt)
		if err != nil {
			discard()
			return err
		}
		if st.Kept == 0 {
			discard()
			return fmt.Errorf("no rows matched state code %s in %d rows read", filterStateCode, st.Read)
		}
		if err := w.Flush(); err != nil {
			discard()
			return fmt.Errorf("write output: %w", err)
		}
		if err := out.Close(); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("close output: %w", err)
		}
		if err := os.Rename(tmp, args[1]); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("finalize output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Kept %d of %d rows in %s\n", st.Kept, st.Read, args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)
	filterCmd.Flags().StringVar(&filterStateCode, "state-code", "23", "IBGE state code prefix of CO_MUNICIPIO_ESC")
	filterCmd.Flags().StringVar(&filterDelimiter, "delimiter", ";", "delimiter of the raw file")
	filterCmd.Flags().BoolVar(&filterLatin1, "latin1", true, "decode the raw file as ISO-8859-1")
}
