// Package knn implements per-subject nearest-neighbor regression over a
// shared, already-scaled feature matrix.
package knn

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultK is the neighbor count used for every subject.
const DefaultK = 9

// Neighbor is one training row selected for a query.
type Neighbor struct {
	Index    int     `json:"index" yaml:"index"`
	Distance float64 `json:"distance" yaml:"distance"`
	Target   float64 `json:"target" yaml:"target"`
}

// Prediction is the result of one subject regressor for one query.
type Prediction struct {
	Subject   string     `json:"subject" yaml:"subject"`
	Score     float64    `json:"score" yaml:"score"`
	Neighbors []Neighbor `json:"neighbors" yaml:"neighbors"`
}

// Targets returns the neighbor target values in neighbor order.
func (p Prediction) Targets() []float64 {
	out := make([]float64, len(p.Neighbors))
	for i, n := range p.Neighbors {
		out[i] = n.Target
	}
	return out
}

// Indices returns the neighbor row indices in neighbor order.
func (p Prediction) Indices() []int {
	out := make([]int, len(p.Neighbors))
	for i, n := range p.Neighbors {
		out[i] = n.Index
	}
	return out
}

// Regressor predicts one subject. It shares the feature matrix with the
// other regressors of its bank and is never modified after construction.
type Regressor struct {
	subject string
	k       int
	x       *mat.Dense
	y       mat.Vector
}

// NewRegressor binds a target column to the shared feature matrix. k is
// clamped to the number of rows.
func NewRegressor(subject string, x *mat.Dense, y mat.Vector, k int) (*Regressor, error) {
	if x == nil || y == nil {
		return nil, errors.New("feature matrix and target are required")
	}
	rows, _ := x.Dims()
	if y.Len() != rows {
		return nil, fmt.Errorf("target %s has %d rows, features have %d", subject, y.Len(), rows)
	}
	if k <= 0 {
		return nil, fmt.Errorf("invalid neighbor count: %d", k)
	}
	if k > rows {
		k = rows
	}
	return &Regressor{subject: subject, k: k, x: x, y: y}, nil
}

// Subject is the target column name.
func (r *Regressor) Subject() string { return r.subject }

// K is the effective neighbor count after clamping.
func (r *Regressor) K() int { return r.k }

// Width is the fitted feature width.
func (r *Regressor) Width() int {
	if r == nil || r.x == nil {
		return 0
	}
	_, c := r.x.Dims()
	return c
}

// PredictOneSubject returns the mean target of the K training rows nearest
// to query. It has no side effects and is safe to call concurrently.
func PredictOneSubject(query []float64, r *Regressor) (Prediction, error) {
	if r == nil || r.x == nil {
		subject := ""
		if r != nil {
			subject = r.subject
		}
		return Prediction{}, &NotFittedError{Subject: subject}
	}
	nbrs, err := Nearest(r.x, query, r.k)
	if err != nil {
		return Prediction{}, err
	}
	targets := make([]float64, len(nbrs))
	for i := range nbrs {
		nbrs[i].Target = r.y.AtVec(nbrs[i].Index)
		targets[i] = nbrs[i].Target
	}
	return Prediction{Subject: r.subject, Score: stat.Mean(targets, nil), Neighbors: nbrs}, nil
}

// Nearest returns the k rows of x closest to query by Euclidean distance,
// ordered by distance. Equal distances keep the original row order.
func Nearest(x *mat.Dense, query []float64, k int) ([]Neighbor, error) {
	rows, cols := x.Dims()
	if len(query) != cols {
		return nil, &DimensionMismatchError{Want: cols, Got: len(query)}
	}
	if k > rows {
		k = rows
	}
	if k <= 0 {
		return nil, nil
	}
	nbrs := make([]Neighbor, 0, k+1)
	for i := 0; i < rows; i++ {
		d := floats.Distance(x.RawRowView(i), query, 2)
		if len(nbrs) == k && d >= nbrs[k-1].Distance {
			continue
		}
		// Insert after any neighbor at the same distance so earlier rows win ties.
		p := sort.Search(len(nbrs), func(j int) bool { return nbrs[j].Distance > d })
		nbrs = append(nbrs, Neighbor{})
		copy(nbrs[p+1:], nbrs[p:])
		nbrs[p] = Neighbor{Index: i, Distance: d}
		if len(nbrs) > k {
			nbrs = nbrs[:k]
		}
	}
	return nbrs, nil
}

// Bank holds one regressor per subject over the same feature matrix.
type Bank struct {
	subjects []string
	regs     map[string]*Regressor
	k        int
	width    int
}

// Fit builds a regressor for each subject. y's columns correspond to
// subjects in order. Fitting only binds data, so the per-subject work runs
// concurrently.
func Fit(x, y *mat.Dense, subjects []string, k int) (*Bank, error) {
	if x == nil || y == nil {
		return nil, errors.New("feature and target matrices are required")
	}
	xr, xc := x.Dims()
	yr, yc := y.Dims()
	if xr != yr {
		return nil, fmt.Errorf("features have %d rows, targets have %d", xr, yr)
	}
	if yc != len(subjects) {
		return nil, fmt.Errorf("targets have %d columns for %d subjects", yc, len(subjects))
	}
	regs := make([]*Regressor, len(subjects))
	var g errgroup.Group
	for i, s := range subjects {
		g.Go(func() error {
			r, err := NewRegressor(s, x, y.ColView(i), k)
			if err != nil {
				return err
			}
			regs[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	b := &Bank{subjects: append([]string(nil), subjects...), regs: make(map[string]*Regressor, len(subjects)), width: xc}
	for i, s := range subjects {
		b.regs[s] = regs[i]
		b.k = regs[i].k
	}
	return b, nil
}

// Subjects returns the subject names in fit order.
func (b *Bank) Subjects() []string { return append([]string(nil), b.subjects...) }

// K is the effective neighbor count.
func (b *Bank) K() int { return b.k }

// Width is the fitted feature width.
func (b *Bank) Width() int { return b.width }

// Regressor returns the regressor for a subject.
func (b *Bank) Regressor(subject string) (*Regressor, bool) {
	if b == nil {
		return nil, false
	}
	r, ok := b.regs[subject]
	return r, ok
}

// Predict runs every subject regressor against query.
func (b *Bank) Predict(ctx context.Context, query []float64) (map[string]Prediction, error) {
	if b == nil || len(b.regs) == 0 {
		return nil, &NotFittedError{}
	}
	if len(query) != b.width {
		return nil, &DimensionMismatchError{Want: b.width, Got: len(query)}
	}
	out := make([]Prediction, len(b.subjects))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range b.subjects {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := PredictOneSubject(query, b.regs[s])
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res := make(map[string]Prediction, len(out))
	for _, p := range out {
		res[p.Subject] = p
	}
	return res, nil
}
