// Package report compares a predicted score with the neighbors that produced
// it and renders the result for people or machines.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/enemcast/internal/dataset"
	"github.com/KaramelBytes/enemcast/internal/knn"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Verdict places a prediction relative to its neighbor group.
type Verdict string

const (
	Superior  Verdict = "SUPERIOR"
	Inferior  Verdict = "INFERIOR"
	AtAverage Verdict = "AT_AVERAGE"
)

// Tolerance band around the neighbor mean.
const (
	SuperiorFactor = 1.05
	InferiorFactor = 0.95
)

// Label is the Portuguese wording used in the text report.
func (v Verdict) Label() string {
	switch v {
	case Superior:
		return "Desempenho previsto é SUPERIOR à média do grupo de referência."
	case Inferior:
		return "Desempenho previsto é INFERIOR à média do grupo de referência."
	default:
		return "Desempenho previsto está NA MÉDIA do grupo de referência."
	}
}

// Judge applies the tolerance band. Both comparisons are strict, so values
// exactly on a boundary are AtAverage.
func Judge(predicted, mean float64) Verdict {
	switch {
	case predicted > mean*SuperiorFactor:
		return Superior
	case predicted < mean*InferiorFactor:
		return Inferior
	default:
		return AtAverage
	}
}

// SubjectResult is the comparison for one subject.
type SubjectResult struct {
	Subject      dataset.Subject `json:"subject" yaml:"subject"`
	Predicted    float64         `json:"predicted" yaml:"predicted"`
	NeighborMean float64         `json:"neighbor_mean" yaml:"neighbor_mean"`
	NeighborMin  float64         `json:"neighbor_min" yaml:"neighbor_min"`
	NeighborMax  float64         `json:"neighbor_max" yaml:"neighbor_max"`
	Verdict      Verdict         `json:"verdict" yaml:"verdict"`
	Reference    *float64        `json:"reference,omitempty" yaml:"reference,omitempty"`
	Neighbors    []knn.Neighbor  `json:"neighbors" yaml:"neighbors"`
}

// NewSubjectResult derives the neighbor statistics and verdict from a
// prediction. reference is optional ground truth, kept only for display.
func NewSubjectResult(subject dataset.Subject, p knn.Prediction, reference *float64) SubjectResult {
	res := SubjectResult{
		Subject:   subject,
		Predicted: p.Score,
		Neighbors: p.Neighbors,
	}
	if reference != nil {
		v := *reference
		res.Reference = &v
	}
	targets := p.Targets()
	if len(targets) == 0 {
		res.Verdict = AtAverage
		return res
	}
	res.NeighborMean = stat.Mean(targets, nil)
	res.NeighborMin = floats.Min(targets)
	res.NeighborMax = floats.Max(targets)
	res.Verdict = Judge(res.Predicted, res.NeighborMean)
	return res
}

// Report is the full analysis of one profile.
type Report struct {
	ID        string          `json:"id" yaml:"id"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
	Profile   dataset.Profile `json:"profile" yaml:"profile"`
	Subjects  []SubjectResult `json:"subjects" yaml:"subjects"`
}

// New assembles a report. Results are kept in the order given.
func New(profile dataset.Profile, results []SubjectResult) *Report {
	p := make(dataset.Profile, len(profile))
	for k, v := range profile {
		p[k] = v
	}
	return &Report{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Profile:   p,
		Subjects:  results,
	}
}

// Subject returns the result for s.
func (r *Report) Subject(s dataset.Subject) (SubjectResult, bool) {
	for _, res := range r.Subjects {
		if res.Subject == s {
			return res, true
		}
	}
	return SubjectResult{}, false
}

var rule = strings.Repeat("=", 70)

// Text renders the report as a plain text block.
func (r *Report) Text() string {
	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("RELATÓRIO DE PREVISÃO DE DESEMPENHO NO ENEM\n")
	b.WriteString(rule + "\n")
	k := 0
	if len(r.Subjects) > 0 {
		k = len(r.Subjects[0].Neighbors)
	}
	b.WriteString("Nota prevista comparada com o desempenho dos ")
	b.WriteString(fmt.Sprintf("%d alunos de perfil mais similar na base de dados.\n", k))
	if len(r.Profile) > 0 {
		b.WriteString(strings.Repeat("-", 70) + "\n")
		for _, f := range dataset.Fields {
			if v, ok := r.Profile[f]; ok {
				b.WriteString(fmt.Sprintf("  %s: %s\n", f, v))
			}
		}
	}
	for _, res := range r.Subjects {
		b.WriteString(fmt.Sprintf("\n>>> ANÁLISE PARA: %s <<<\n", res.Subject))
		if res.Reference != nil {
			b.WriteString(fmt.Sprintf("    Nota Real (referência): %.2f\n", *res.Reference))
		}
		b.WriteString(fmt.Sprintf("    PREVISÃO DE NOTA: %.2f\n", res.Predicted))
		b.WriteString("    -----------------------------------------\n")
		b.WriteString("    Comparativo com os Vizinhos:\n")
		b.WriteString(fmt.Sprintf("    - Média dos vizinhos: %.2f\n", res.NeighborMean))
		b.WriteString(fmt.Sprintf("    - Faixa de notas (pior a melhor): %.2f a %.2f\n", res.NeighborMin, res.NeighborMax))
		b.WriteString(fmt.Sprintf("    [AVALIAÇÃO]: %s\n", res.Verdict.Label()))
	}
	b.WriteString("\n" + rule + "\n")
	b.WriteString("FIM DO RELATÓRIO\n")
	b.WriteString(rule + "\n")
	return b.String()
}
