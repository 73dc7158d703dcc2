// Package features turns categorical student attributes into standardized
// numeric vectors. The Schema fitted on the training set is the contract
// between training and inference: every later encoding is aligned to it.
package features

import (
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/enemcast/internal/dataset"
	"gonum.org/v1/gonum/mat"
)

// Schema is the canonical, ordered list of one-hot columns. It is immutable
// once built.
type Schema struct {
	columns []string
	index   map[string]int
}

// Columns returns a copy of the column names in order.
func (s *Schema) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Len is the encoded vector width.
func (s *Schema) Len() int { return len(s.columns) }

// Column returns the index of the indicator for field=value.
func (s *Schema) Column(field, value string) (int, bool) {
	i, ok := s.index[columnName(field, value)]
	return i, ok
}

func columnName(field, value string) string { return field + "_" + value }

// categoryValue returns the category a raw value falls into. Training rows
// and queries both pass through here, so "2.0" and "2" land in the same
// column. Blank non-state values have no category. State values always
// resolve, unknown codes collapsing to dataset.StateOther.
func categoryValue(field, raw string) (string, bool) {
	v := dataset.NormalizeCode(raw)
	if field == dataset.FieldState {
		return dataset.StateAbbreviation(v), true
	}
	return v, v != ""
}

// FitSchema derives the canonical schema from the valid training records:
// one column per distinct observed value, fields in dataset.Fields order,
// values sorted numerically when all parse as numbers and lexically
// otherwise.
func FitSchema(recs []dataset.Record) (*Schema, error) {
	seen := make(map[string]map[string]struct{}, len(dataset.Fields))
	valid := 0
	for _, r := range recs {
		if !r.Valid() {
			continue
		}
		valid++
		for _, f := range dataset.Fields {
			v, ok := categoryValue(f, r.Attrs[f])
			if !ok {
				continue
			}
			if seen[f] == nil {
				seen[f] = map[string]struct{}{}
			}
			seen[f][v] = struct{}{}
		}
	}
	if valid == 0 {
		return nil, &SchemaError{Reason: "no usable training rows after cleaning"}
	}
	s := &Schema{index: map[string]int{}}
	for _, f := range dataset.Fields {
		vals := make([]string, 0, len(seen[f]))
		for v := range seen[f] {
			vals = append(vals, v)
		}
		sortValues(vals)
		for _, v := range vals {
			name := columnName(f, v)
			s.index[name] = len(s.columns)
			s.columns = append(s.columns, name)
		}
	}
	return s, nil
}

func sortValues(vals []string) {
	nums := make([]float64, len(vals))
	numeric := true
	for i, v := range vals {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = f
	}
	if !numeric {
		sort.Strings(vals)
		return
	}
	sort.Sort(byNumber{vals, nums})
}

type byNumber struct {
	vals []string
	nums []float64
}

func (b byNumber) Len() int { return len(b.vals) }
func (b byNumber) Less(i, j int) bool {
	if b.nums[i] == b.nums[j] {
		return b.vals[i] < b.vals[j]
	}
	return b.nums[i] < b.nums[j]
}
func (b byNumber) Swap(i, j int) {
	b.vals[i], b.vals[j] = b.vals[j], b.vals[i]
	b.nums[i], b.nums[j] = b.nums[j], b.nums[i]
}

// Matrix is the encoded training set.
type Matrix struct {
	// X holds one row per valid record, Schema.Len() columns.
	X *mat.Dense
	// Y holds the scores, columns in dataset.Subjects order.
	Y *mat.Dense
	// Source maps each row back to its index in the input slice.
	Source []int
}

// EncodeTraining builds the feature and target matrices for the valid
// records, aligned to schema.
func EncodeTraining(recs []dataset.Record, schema *Schema) (*Matrix, error) {
	if schema == nil || schema.Len() == 0 {
		return nil, &SchemaError{Reason: "schema not fitted"}
	}
	var src []int
	for i, r := range recs {
		if r.Valid() {
			src = append(src, i)
		}
	}
	if len(src) == 0 {
		return nil, &SchemaError{Reason: "no usable training rows after cleaning"}
	}
	x := mat.NewDense(len(src), schema.Len(), nil)
	y := mat.NewDense(len(src), len(dataset.Subjects), nil)
	for row, i := range src {
		r := recs[i]
		for _, f := range dataset.Fields {
			v, ok := categoryValue(f, r.Attrs[f])
			if !ok {
				continue
			}
			if c, ok := schema.Column(f, v); ok {
				x.Set(row, c, 1)
			}
		}
		for c, s := range dataset.Subjects {
			y.Set(row, c, r.Scores[s])
		}
	}
	return &Matrix{X: x, Y: y, Source: src}, nil
}

// EncodeQuery encodes a profile onto schema. Every field must be present and
// non-blank; a value the schema has never seen leaves that field's
// indicators at zero.
func EncodeQuery(p dataset.Profile, schema *Schema) ([]float64, error) {
	if schema == nil || schema.Len() == 0 {
		return nil, &SchemaError{Reason: "schema not fitted"}
	}
	out := make([]float64, schema.Len())
	for _, f := range dataset.Fields {
		raw, ok := p[f]
		if !ok || strings.TrimSpace(raw) == "" {
			return nil, &EncodingError{Field: f}
		}
		v, ok := categoryValue(f, raw)
		if !ok {
			return nil, &EncodingError{Field: f}
		}
		if c, ok := schema.Column(f, v); ok {
			out[c] = 1
		}
	}
	return out, nil
}
