package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/enemcast/internal/dataset"
	"github.com/KaramelBytes/enemcast/internal/features"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags clears values and Changed state that persist across Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and returns stdout.
func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")
	return home
}

func writeDataset(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("NU_NOTA_MT,NU_NOTA_CN,NU_NOTA_LC,NU_NOTA_CH,NU_NOTA_REDACAO,Q006,Q002,TP_ESCOLA,TP_COR_RACA,CO_MUNICIPIO_ESC\n")
	incomes := []string{"A", "B", "C", "Q"}
	edu := []string{"B", "C", "E", "F", "G"}
	munis := []string{"2304400", "2303709", "3550308"}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,%d,%d,%d,%d,%s,%s,%d,%d,%s\n",
			420+(i*37)%280, 430+(i*23)%240, 440+(i*19)%220, 450+(i*31)%230, 400+(i*53)%560,
			incomes[i%len(incomes)], edu[i%len(edu)], 2+i%2, 1+i%3, munis[i%len(munis)])
	}
	// incomplete rows are cleaned out
	b.WriteString("500,,510,520,600,A,B,2,1,2304400\n")
	b.WriteString("500,510,510,520,0,A,B,2,1,2304400\n")
	path := filepath.Join(dir, "dados.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func TestCLI_TrainJSON(t *testing.T) {
	home := setupHome(t)
	ds := writeDataset(t, home, 60)

	out := runCmd(t, "train", "--dataset", ds, "--format", "json")
	var sum trainSummary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode train output: %v\n%s", err, out)
	}
	if sum.Rows != 60 || sum.Dropped != 2 || sum.K != 9 || len(sum.Subjects) != 5 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestCLI_PredictText(t *testing.T) {
	home := setupHome(t)
	ds := writeDataset(t, home, 60)

	out := runCmd(t, "predict", "--dataset", ds,
		"--income", "Até R$ 1.212", "--mother-education", "E", "--school", "Pública",
		"--race", "Parda", "--state", "CE", "--reference", "MT=612.5,RED=780")
	for _, want := range []string{
		"RELATÓRIO DE PREVISÃO DE DESEMPENHO NO ENEM",
		">>> ANÁLISE PARA: NU_NOTA_REDACAO <<<",
		"Nota Real (referência): 612.50",
		"Nota Real (referência): 780.00",
		"[AVALIAÇÃO]",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("predict output missing %q:\n%s", want, out)
		}
	}

	// Report written to a file with the configured format.
	path := filepath.Join(home, "out", "report.yaml")
	out = runCmd(t, "predict", "--dataset", ds, "--format", "yaml", "-o", path,
		"--income", "B", "--mother-education", "E", "--school", "2", "--race", "3", "--state", "23")
	if !strings.Contains(out, "✓ Wrote") {
		t.Fatalf("expected write confirmation, got %q", out)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(b), "verdict:") || !strings.Contains(string(b), "SG_UF_RESIDENCIA: \"23\"") {
		t.Fatalf("unexpected yaml report:\n%s", b)
	}
}

func TestCLI_PredictMissingField(t *testing.T) {
	home := setupHome(t)
	ds := writeDataset(t, home, 30)

	_, err := execCmd(t, "predict", "--dataset", ds,
		"--mother-education", "E", "--school", "2", "--race", "3", "--state", "CE")
	var ee *features.EncodingError
	if !errors.As(err, &ee) || ee.Field != dataset.FieldIncome {
		t.Fatalf("expected EncodingError for income, got %v", err)
	}

	// An unrecognized code is accepted.
	runCmd(t, "predict", "--dataset", ds,
		"--income", "K", "--mother-education", "E", "--school", "2", "--race", "3", "--state", "CE")
}

func TestCLI_PredictListOptions(t *testing.T) {
	setupHome(t)
	out := runCmd(t, "predict", "--list-options")
	for _, want := range []string{"--income (Q006)", "Nenhuma Renda", "Pós-graduação", "CE, SP, RJ, BA, MG, PE, OTHER"} {
		if !strings.Contains(out, want) {
			t.Fatalf("options missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_EvaluateDescribeSchema(t *testing.T) {
	home := setupHome(t)
	ds := writeDataset(t, home, 50)

	out := runCmd(t, "evaluate", "--dataset", ds, "--test-size", "0.2", "--seed", "7")
	for _, want := range []string{"Train rows: 40, test rows: 10 (seed 7)", "Nota Real (referência)", "[HOLD-OUT ERROR]", "RMSE"} {
		if !strings.Contains(out, want) {
			t.Fatalf("evaluate output missing %q:\n%s", want, out)
		}
	}

	out = runCmd(t, "describe", "--dataset", ds)
	if !strings.Contains(out, "Rows: 52 (usable 50, dropped 2)") || !strings.Contains(out, "SG_UF_RESIDENCIA: CE(") {
		t.Fatalf("unexpected describe output:\n%s", out)
	}

	out = runCmd(t, "schema", "--dataset", ds, "--format", "json")
	var cols []schemaColumn
	if err := json.Unmarshal([]byte(out), &cols); err != nil {
		t.Fatalf("decode schema: %v\n%s", err, out)
	}
	if len(cols) == 0 || cols[0].Name != "Q006_A" {
		t.Fatalf("unexpected schema: %+v", cols)
	}
}

func TestCLI_MissingDataset(t *testing.T) {
	home := setupHome(t)
	_, err := execCmd(t, "train", "--dataset", filepath.Join(home, "nope.csv"))
	var dle *dataset.DataLoadError
	if !errors.As(err, &dle) {
		t.Fatalf("expected DataLoadError, got %v", err)
	}
}

func TestCLI_FilterThenTrain(t *testing.T) {
	home := setupHome(t)
	raw := []byte("NU_INSCRICAO;NU_NOTA_MT;NU_NOTA_CN;NU_NOTA_LC;NU_NOTA_CH;NU_NOTA_REDACAO;Q006;Q002;TP_ESCOLA;TP_COR_RACA;CO_MUNICIPIO_ESC\n")
	for i := 0; i < 20; i++ {
		muni := "2304400"
		if i%4 == 0 {
			muni = "3550308"
		}
		raw = append(raw, fmt.Sprintf("%d;%d,5;%d;%d;%d;%d;B;E;2;3;%s\n", i, 500+i, 510+i, 520+i, 530+i, 600+i*10, muni)...)
	}
	// ISO-8859-1 "São" in an ignored column must not break decoding.
	raw = append(raw, []byte("99;500;500;500;500;600;B;E;2;3;S\xe3o\n")...)
	in := filepath.Join(home, "micro.csv")
	if err := os.WriteFile(in, raw, 0o644); err != nil {
		t.Fatalf("write raw: %v", err)
	}
	outPath := filepath.Join(home, "ce.csv")
	out := runCmd(t, "filter", in, outPath, "--state-code", "23")
	if !strings.Contains(out, "✓ Kept 15 of 21 rows") {
		t.Fatalf("unexpected filter output: %q", out)
	}
	out = runCmd(t, "train", "--dataset", outPath, "--format", "json")
	var sum trainSummary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode train output: %v", err)
	}
	if sum.Rows != 15 {
		t.Fatalf("trained on %d rows, want 15", sum.Rows)
	}
}

func TestCLI_FilterFailureLeavesNoOutput(t *testing.T) {
	home := setupHome(t)
	raw := "NU_INSCRICAO;NU_NOTA_MT;NU_NOTA_CN;NU_NOTA_LC;NU_NOTA_CH;NU_NOTA_REDACAO;Q006;Q002;TP_ESCOLA;TP_COR_RACA;CO_MUNICIPIO_ESC\n" +
		"1;500;510;520;530;600;B;E;2;3;2304400\n" +
		"2;501;511;521;531;610;B;E;2;3;3550308\n"
	in := filepath.Join(home, "micro.csv")
	if err := os.WriteFile(in, []byte(raw), 0o644); err != nil {
		t.Fatalf("write raw: %v", err)
	}
	outPath := filepath.Join(home, "none.csv")
	_, err := execCmd(t, "filter", in, outPath, "--state-code", "99")
	if err == nil || !strings.Contains(err.Error(), "no rows matched") {
		t.Fatalf("expected no-match error, got %v", err)
	}
	for _, p := range []string{outPath, outPath + ".tmp"} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s should not exist: %v", p, err)
		}
	}

	// An input missing required columns fails mid-stream and leaves nothing behind.
	bad := filepath.Join(home, "bad.csv")
	if err := os.WriteFile(bad, []byte("NU_INSCRICAO;NU_NOTA_MT\n1;500\n"), 0o644); err != nil {
		t.Fatalf("write bad: %v", err)
	}
	if _, err := execCmd(t, "filter", bad, outPath); err == nil {
		t.Fatal("expected error for input without required columns")
	}
	for _, p := range []string{outPath, outPath + ".tmp"} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s should not exist: %v", p, err)
		}
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := setupHome(t)
	runCmd(t, "config", "set", "neighbors", "5")
	runCmd(t, "config", "set", "output_format", "yaml")
	if _, err := execCmd(t, "config", "set", "test_size", "2"); err == nil {
		t.Fatalf("expected error for out-of-range test_size")
	}
	if _, err := execCmd(t, "config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if _, err := os.Stat(filepath.Join(home, ".enemcast", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "neighbors: 5") || !strings.Contains(out, "output_format: yaml") {
		t.Fatalf("unexpected config show:\n%s", out)
	}
}
