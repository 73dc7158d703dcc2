package knn

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNearest_TiesKeepRowOrder(t *testing.T) {
	// Rows 1, 2 and 4 are all at distance 1 from the origin.
	x := mat.NewDense(5, 2, []float64{
		3, 0,
		1, 0,
		0, 1,
		0, 0,
		-1, 0,
	})
	nbrs, err := Nearest(x, []float64{0, 0}, 3)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	got := Prediction{Neighbors: nbrs}.Indices()
	if want := []int{3, 1, 2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("indices %v, want %v", got, want)
	}
	nbrs, _ = Nearest(x, []float64{0, 0}, 4)
	if got := (Prediction{Neighbors: nbrs}).Indices(); !reflect.DeepEqual(got, []int{3, 1, 2, 4}) {
		t.Fatalf("indices %v", got)
	}
}

func TestPredictOneSubject_MeanOfNeighbors(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{0, 1, 2, 10})
	y := mat.NewVecDense(4, []float64{400, 500, 600, 900})
	r, err := NewRegressor("NU_NOTA_MT", x, y, 3)
	if err != nil {
		t.Fatalf("NewRegressor: %v", err)
	}
	p, err := PredictOneSubject([]float64{1}, r)
	if err != nil {
		t.Fatalf("PredictOneSubject: %v", err)
	}
	if p.Score != 500 {
		t.Fatalf("score %v, want 500", p.Score)
	}
	if !reflect.DeepEqual(p.Targets(), []float64{500, 400, 600}) {
		t.Fatalf("targets %v", p.Targets())
	}
	if p.Subject != "NU_NOTA_MT" {
		t.Fatalf("subject %q", p.Subject)
	}
}

func TestNewRegressor_ClampsK(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{0, 1})
	y := mat.NewVecDense(2, []float64{100, 300})
	r, err := NewRegressor("s", x, y, DefaultK)
	if err != nil {
		t.Fatalf("NewRegressor: %v", err)
	}
	if r.K() != 2 {
		t.Fatalf("k %d, want 2", r.K())
	}
	p, err := PredictOneSubject([]float64{0}, r)
	if err != nil {
		t.Fatalf("PredictOneSubject: %v", err)
	}
	if p.Score != 200 || len(p.Neighbors) != 2 {
		t.Fatalf("unexpected prediction %+v", p)
	}
	if _, err := NewRegressor("s", x, y, 0); err == nil {
		t.Fatalf("expected error for k=0")
	}
}

func TestNotFitted(t *testing.T) {
	var nf *NotFittedError
	if _, err := PredictOneSubject([]float64{1}, nil); !errors.As(err, &nf) {
		t.Fatalf("nil regressor: %v", err)
	}
	if _, err := PredictOneSubject([]float64{1}, &Regressor{subject: "NU_NOTA_CN"}); !errors.As(err, &nf) || nf.Subject != "NU_NOTA_CN" {
		t.Fatalf("unfitted regressor: %v", err)
	}
	var b Bank
	if _, err := b.Predict(context.Background(), []float64{1}); !errors.As(err, &nf) {
		t.Fatalf("zero bank: %v", err)
	}
	var nb *Bank
	if _, err := nb.Predict(context.Background(), []float64{1}); !errors.As(err, &nf) {
		t.Fatalf("nil bank: %v", err)
	}
}

func bankFixture(t *testing.T) *Bank {
	t.Helper()
	x := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		5, 5,
		6, 6,
	})
	y := mat.NewDense(6, 3, []float64{
		500, 600, 700,
		510, 610, 710,
		520, 620, 720,
		530, 630, 730,
		900, 900, 900,
		950, 950, 950,
	})
	b, err := Fit(x, y, []string{"a", "b", "c"}, 4)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return b
}

func TestBank_SharedNeighbors(t *testing.T) {
	b := bankFixture(t)
	if b.K() != 4 || b.Width() != 2 {
		t.Fatalf("k=%d width=%d", b.K(), b.Width())
	}
	preds, err := b.Predict(context.Background(), []float64{0.4, 0.4})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(preds) != 3 {
		t.Fatalf("got %d predictions", len(preds))
	}
	want := preds["a"].Indices()
	for _, s := range b.Subjects() {
		if got := preds[s].Indices(); !reflect.DeepEqual(got, want) {
			t.Fatalf("subject %s neighbors %v, want %v", s, got, want)
		}
	}
	if preds["a"].Score != 515 || preds["c"].Score != 715 {
		t.Fatalf("scores a=%v c=%v", preds["a"].Score, preds["c"].Score)
	}
}

func TestBank_DimensionMismatch(t *testing.T) {
	b := bankFixture(t)
	_, err := b.Predict(context.Background(), []float64{1, 2, 3})
	var dm *DimensionMismatchError
	if !errors.As(err, &dm) || dm.Want != 2 || dm.Got != 3 {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
}

func TestBank_CanceledContext(t *testing.T) {
	b := bankFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Predict(ctx, []float64{0, 0}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFit_ShapeErrors(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{0, 1})
	if _, err := Fit(x, mat.NewDense(3, 1, nil), []string{"a"}, 1); err == nil {
		t.Fatalf("expected row mismatch error")
	}
	if _, err := Fit(x, mat.NewDense(2, 2, nil), []string{"a"}, 1); err == nil {
		t.Fatalf("expected subject count error")
	}
}
