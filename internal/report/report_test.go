package report

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/enemcast/internal/dataset"
	"github.com/KaramelBytes/enemcast/internal/knn"
	"gopkg.in/yaml.v3"
)

func TestJudge_Boundaries(t *testing.T) {
	m := 600.0
	eps := 1e-9
	cases := []struct {
		pred float64
		want Verdict
	}{
		{m * SuperiorFactor, AtAverage},
		{m*SuperiorFactor + eps, Superior},
		{m * InferiorFactor, AtAverage},
		{m*InferiorFactor - eps, Inferior},
		{m, AtAverage},
		{math.Nextafter(m*SuperiorFactor, math.Inf(1)), Superior},
		{math.Nextafter(m*InferiorFactor, math.Inf(-1)), Inferior},
	}
	for _, c := range cases {
		if got := Judge(c.pred, m); got != c.want {
			t.Fatalf("Judge(%v, %v) = %s, want %s", c.pred, m, got, c.want)
		}
	}
}

func prediction(score float64, targets ...float64) knn.Prediction {
	p := knn.Prediction{Subject: string(dataset.Math), Score: score}
	for i, v := range targets {
		p.Neighbors = append(p.Neighbors, knn.Neighbor{Index: i, Distance: float64(i), Target: v})
	}
	return p
}

func TestNewSubjectResult(t *testing.T) {
	ref := 640.0
	res := NewSubjectResult(dataset.Math, prediction(700, 500, 600, 700), &ref)
	if res.NeighborMean != 600 || res.NeighborMin != 500 || res.NeighborMax != 700 {
		t.Fatalf("stats: %+v", res)
	}
	if res.Verdict != Superior {
		t.Fatalf("verdict %s", res.Verdict)
	}
	ref = 1
	if res.Reference == nil || *res.Reference != 640 {
		t.Fatalf("reference should be copied, got %v", res.Reference)
	}

	none := NewSubjectResult(dataset.Essay, knn.Prediction{}, nil)
	if none.Verdict != AtAverage || none.Reference != nil {
		t.Fatalf("empty prediction: %+v", none)
	}
}

func TestReportText(t *testing.T) {
	ref := 555.5
	p := dataset.Profile{dataset.FieldIncome: "B", dataset.FieldState: "CE"}
	r := New(p, []SubjectResult{
		NewSubjectResult(dataset.Math, prediction(600, 600, 600), &ref),
		NewSubjectResult(dataset.Essay, prediction(500, 600, 700), nil),
	})
	p[dataset.FieldIncome] = "Q"
	if r.Profile[dataset.FieldIncome] != "B" {
		t.Fatalf("profile should be copied")
	}
	if r.ID == "" || r.CreatedAt.IsZero() {
		t.Fatalf("missing id or timestamp")
	}
	txt := r.Text()
	for _, want := range []string{
		"RELATÓRIO DE PREVISÃO DE DESEMPENHO NO ENEM",
		">>> ANÁLISE PARA: NU_NOTA_MT <<<",
		"Nota Real (referência): 555.50",
		"PREVISÃO DE NOTA: 600.00",
		"Faixa de notas (pior a melhor): 600.00 a 700.00",
		"NA MÉDIA",
		"INFERIOR",
		"Q006: B",
		"FIM DO RELATÓRIO",
	} {
		if !strings.Contains(txt, want) {
			t.Fatalf("report text missing %q:\n%s", want, txt)
		}
	}
	if strings.Count(txt, "Nota Real") != 1 {
		t.Fatalf("reference should only be shown when supplied")
	}
	if _, ok := r.Subject(dataset.Science); ok {
		t.Fatalf("unexpected subject")
	}
}

func TestReportEncodings(t *testing.T) {
	r := New(dataset.Profile{dataset.FieldIncome: "B"}, []SubjectResult{
		NewSubjectResult(dataset.Math, prediction(650, 600, 600), nil),
	})
	js, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(string(js), `"verdict":"SUPERIOR"`) || strings.Contains(string(js), "reference") {
		t.Fatalf("json: %s", js)
	}
	ys, err := yaml.Marshal(r)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(string(ys), "neighbor_mean: 600") {
		t.Fatalf("yaml: %s", ys)
	}
}
