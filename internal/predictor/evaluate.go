package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/KaramelBytes/enemcast/internal/dataset"
	"github.com/KaramelBytes/enemcast/internal/features"
	"github.com/KaramelBytes/enemcast/internal/report"
	"gonum.org/v1/gonum/floats"
)

// EvalOptions controls a hold-out evaluation.
type EvalOptions struct {
	K        int
	TestSize float64
	Seed     uint64
}

// SubjectMetric is the hold-out error for one subject.
type SubjectMetric struct {
	Subject dataset.Subject `json:"subject" yaml:"subject"`
	MAE     float64         `json:"mae" yaml:"mae"`
	RMSE    float64         `json:"rmse" yaml:"rmse"`
}

// Evaluation is the outcome of Evaluate.
type Evaluation struct {
	TrainRows int             `json:"train_rows" yaml:"train_rows"`
	TestRows  int             `json:"test_rows" yaml:"test_rows"`
	Metrics   []SubjectMetric `json:"metrics" yaml:"metrics"`
	// Sample is the full report for the first held-out student, with the
	// real scores as reference.
	Sample *report.Report `json:"sample" yaml:"sample"`
}

// Split shuffles the valid records with a seeded generator and holds out
// round(n*testSize) of them, keeping at least one on each side.
func Split(recs []dataset.Record, testSize float64, seed uint64) (train, test []dataset.Record, err error) {
	clean := dataset.Clean(recs)
	n := len(clean)
	if n < 2 {
		return nil, nil, &features.SchemaError{Reason: fmt.Sprintf("need at least 2 usable rows to split, have %d", n)}
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}
	nt := int(math.Round(float64(n) * testSize))
	nt = max(1, min(nt, n-1))
	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	for i, p := range perm {
		if i < nt {
			test = append(test, clean[p])
		} else {
			train = append(train, clean[p])
		}
	}
	return train, test, nil
}

// Evaluate trains on a seeded split and measures the held-out error.
func Evaluate(ctx context.Context, recs []dataset.Record, opts EvalOptions) (*Evaluation, error) {
	train, test, err := Split(recs, opts.TestSize, opts.Seed)
	if err != nil {
		return nil, err
	}
	b, err := Train(ctx, train, Options{K: opts.K})
	if err != nil {
		return nil, err
	}
	// Held-out rows go through the training encoder so blank categories
	// behave the same on both sides.
	m, err := features.EncodeTraining(test, b.schema)
	if err != nil {
		return nil, err
	}
	xs, err := b.scaler.Transform(m.X)
	if err != nil {
		return nil, err
	}
	rows, _ := xs.Dims()
	pred := make([][]float64, len(dataset.Subjects))
	actual := make([][]float64, len(dataset.Subjects))
	for c := range dataset.Subjects {
		pred[c] = make([]float64, rows)
		actual[c] = make([]float64, rows)
	}
	ev := &Evaluation{TrainRows: b.Rows(), TestRows: rows}
	for i := 0; i < rows; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := test[m.Source[i]]
		ref := make(map[dataset.Subject]float64, len(dataset.Subjects))
		for s, v := range rec.Scores {
			ref[s] = v
		}
		rep, err := b.analyzeVector(ctx, rec.Profile(), xs.RawRowView(i), ref)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			ev.Sample = rep
		}
		for c, s := range dataset.Subjects {
			res, ok := rep.Subject(s)
			if !ok {
				return nil, errors.New("missing subject in report: " + string(s))
			}
			pred[c][i] = res.Predicted
			actual[c][i] = ref[s]
		}
	}
	n := float64(rows)
	for c, s := range dataset.Subjects {
		ev.Metrics = append(ev.Metrics, SubjectMetric{
			Subject: s,
			MAE:     floats.Distance(pred[c], actual[c], 1) / n,
			RMSE:    floats.Distance(pred[c], actual[c], 2) / math.Sqrt(n),
		})
	}
	return ev, nil
}
