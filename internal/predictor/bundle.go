// Package predictor ties the encoder, scaler and regressor bank into a single
// trained bundle that can analyze student profiles.
package predictor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KaramelBytes/enemcast/internal/dataset"
	"github.com/KaramelBytes/enemcast/internal/features"
	"github.com/KaramelBytes/enemcast/internal/knn"
	"github.com/KaramelBytes/enemcast/internal/report"
	"gonum.org/v1/gonum/mat"
)

// Options controls training.
type Options struct {
	// K is the neighbor count; zero means knn.DefaultK.
	K int
}

// Bundle is the immutable result of training. It is safe for concurrent use.
type Bundle struct {
	schema *features.Schema
	scaler *features.Scaler
	bank   *knn.Bank
	x      *mat.Dense
	y      *mat.Dense
	source []int
	rows   int
}

// Train cleans the records, fits the schema and scaler, and fits one
// regressor per subject. Nothing is returned on failure.
func Train(ctx context.Context, recs []dataset.Record, opts Options) (*Bundle, error) {
	start := time.Now()
	k := opts.K
	if k == 0 {
		k = knn.DefaultK
	}
	schema, err := features.FitSchema(recs)
	if err != nil {
		return nil, err
	}
	m, err := features.EncodeTraining(recs, schema)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scaler, err := features.FitScaler(m.X)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	xs, err := scaler.Transform(m.X)
	if err != nil {
		return nil, fmt.Errorf("scale training matrix: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bank, err := knn.Fit(xs, m.Y, subjectNames(), k)
	if err != nil {
		return nil, fmt.Errorf("fit regressors: %w", err)
	}
	rows, _ := xs.Dims()
	slog.Debug("trained predictor",
		"records", len(recs),
		"rows", rows,
		"features", schema.Len(),
		"k", bank.K(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return &Bundle{
		schema: schema,
		scaler: scaler,
		bank:   bank,
		x:      xs,
		y:      m.Y,
		source: m.Source,
		rows:   len(recs),
	}, nil
}

func subjectNames() []string {
	out := make([]string, len(dataset.Subjects))
	for i, s := range dataset.Subjects {
		out[i] = string(s)
	}
	return out
}

// Schema is the one-hot layout fitted on the training rows.
func (b *Bundle) Schema() *features.Schema { return b.schema }

// Scaler holds the column statistics fitted on the encoded training rows.
func (b *Bundle) Scaler() *features.Scaler { return b.scaler }

// Bank is the per-subject regressor set.
func (b *Bundle) Bank() *knn.Bank { return b.bank }

// Rows is the number of training rows kept after cleaning.
func (b *Bundle) Rows() int { return len(b.source) }

// Dropped is the number of input records removed by cleaning.
func (b *Bundle) Dropped() int { return b.rows - len(b.source) }

// ScaledRow returns a copy of a scaled training row.
func (b *Bundle) ScaledRow(i int) []float64 {
	return append([]float64(nil), b.x.RawRowView(i)...)
}

// Target returns the training score of row i for subject s.
func (b *Bundle) Target(i int, s dataset.Subject) float64 {
	for c, sub := range dataset.Subjects {
		if sub == s {
			return b.y.At(i, c)
		}
	}
	return 0
}

// SourceIndex maps a training row back to the index of the record it came
// from in the slice passed to Train.
func (b *Bundle) SourceIndex(row int) int { return b.source[row] }

// Vector encodes and scales a profile.
func (b *Bundle) Vector(p dataset.Profile) ([]float64, error) {
	if b == nil || b.schema == nil {
		return nil, &knn.NotFittedError{}
	}
	enc, err := features.EncodeQuery(p, b.schema)
	if err != nil {
		return nil, err
	}
	return b.scaler.TransformVector(enc)
}

// Analyze predicts every subject for a profile and compares each prediction
// with its neighbor group. reference holds optional known scores shown next
// to the predictions. Neighbor indices in the report refer to the records
// passed to Train.
func (b *Bundle) Analyze(ctx context.Context, p dataset.Profile, reference map[dataset.Subject]float64) (*report.Report, error) {
	v, err := b.Vector(p)
	if err != nil {
		return nil, err
	}
	return b.analyzeVector(ctx, p, v, reference)
}

func (b *Bundle) analyzeVector(ctx context.Context, p dataset.Profile, v []float64, reference map[dataset.Subject]float64) (*report.Report, error) {
	preds, err := b.bank.Predict(ctx, v)
	if err != nil {
		return nil, err
	}
	results := make([]report.SubjectResult, 0, len(dataset.Subjects))
	for _, s := range dataset.Subjects {
		pred, ok := preds[string(s)]
		if !ok {
			return nil, &knn.NotFittedError{Subject: string(s)}
		}
		nbrs := make([]knn.Neighbor, len(pred.Neighbors))
		for i, n := range pred.Neighbors {
			n.Index = b.source[n.Index]
			nbrs[i] = n
		}
		pred.Neighbors = nbrs
		var ref *float64
		if r, ok := reference[s]; ok {
			ref = &r
		}
		results = append(results, report.NewSubjectResult(s, pred, ref))
	}
	return report.New(p, results), nil
}
