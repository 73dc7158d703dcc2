package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Subject identifies one ENEM score column.
type Subject string

const (
	Math       Subject = "NU_NOTA_MT"
	Science    Subject = "NU_NOTA_CN"
	Languages  Subject = "NU_NOTA_LC"
	Humanities Subject = "NU_NOTA_CH"
	Essay      Subject = "NU_NOTA_REDACAO"
)

// Subjects lists every predicted score in canonical order.
var Subjects = []Subject{Math, Science, Languages, Humanities, Essay}

// Short returns the two-letter area code used in flags and compact output.
func (s Subject) Short() string {
	switch s {
	case Math:
		return "MT"
	case Science:
		return "CN"
	case Languages:
		return "LC"
	case Humanities:
		return "CH"
	case Essay:
		return "REDACAO"
	}
	return string(s)
}

// ParseSubject accepts a column name or its short code, case-insensitively.
func ParseSubject(s string) (Subject, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	for _, sub := range Subjects {
		if v == string(sub) || v == sub.Short() {
			return sub, nil
		}
	}
	if v == "RED" {
		return Essay, nil
	}
	return "", fmt.Errorf("unknown subject: %q", s)
}

// Categorical field names. The order is the canonical encoding order.
const (
	FieldIncome          = "Q006"
	FieldMotherEducation = "Q002"
	FieldSchoolType      = "TP_ESCOLA"
	FieldRace            = "TP_COR_RACA"
	FieldState           = "SG_UF_RESIDENCIA"
)

// Fields lists the categorical attributes in canonical order.
var Fields = []string{FieldIncome, FieldMotherEducation, FieldSchoolType, FieldRace, FieldState}

// Record is one historical student.
type Record struct {
	// Scores holds the observed scores; an absent key means the score is missing.
	Scores map[Subject]float64
	// Attrs holds the raw categorical values keyed by field name. The state
	// field may carry either a geographic code or an abbreviation.
	Attrs map[string]string
}

// Valid reports whether the record can be used for training: every score is
// present, none is negative and the essay score is strictly positive.
func (r Record) Valid() bool {
	for _, s := range Subjects {
		v, ok := r.Scores[s]
		if !ok || v < 0 {
			return false
		}
	}
	return r.Scores[Essay] > 0
}

// Clean returns the valid records, preserving order.
func Clean(recs []Record) []Record {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// Profile is a query record: field name to raw value, no scores.
type Profile map[string]string

// Profile returns the categorical attributes of r as a query profile, with
// the state resolved to its abbreviation.
func (r Record) Profile() Profile {
	p := make(Profile, len(Fields))
	for _, f := range Fields {
		v := r.Attrs[f]
		if f == FieldState {
			v = StateAbbreviation(v)
		}
		p[f] = v
	}
	return p
}

// Option pairs a display label with the raw dataset code.
type Option struct {
	Label string
	Code  string
}

// Vocabularies used by the questionnaire. Labels follow the INEP wording.
var (
	IncomeBrackets = []Option{
		{"Nenhuma Renda", "A"},
		{"Até R$ 1.212", "B"},
		{"De R$ 1.212 a R$ 1.818", "C"},
		{"Mais de R$ 24.240", "Q"},
	}
	MotherEducation = []Option{
		{"Não estudou", "A"},
		{"Fundamental Incompleto", "B"},
		{"Fundamental Completo", "C"},
		{"Médio Incompleto", "D"},
		{"Médio Completo", "E"},
		{"Superior Completo", "F"},
		{"Pós-graduação", "G"},
		{"Não sabe", "H"},
	}
	SchoolTypes = []Option{
		{"Não Respondeu", "1"},
		{"Pública", "2"},
		{"Privada", "3"},
	}
	Races = []Option{
		{"Não declarado", "0"},
		{"Branca", "1"},
		{"Preta", "2"},
		{"Parda", "3"},
		{"Amarela", "4"},
		{"Indígena", "5"},
	}
)

// FieldOptions returns the known vocabulary for a field, or nil for the state field.
func FieldOptions(field string) []Option {
	switch field {
	case FieldIncome:
		return IncomeBrackets
	case FieldMotherEducation:
		return MotherEducation
	case FieldSchoolType:
		return SchoolTypes
	case FieldRace:
		return Races
	}
	return nil
}

// ResolveOption maps a label (case-insensitive) to its code; unknown input is
// returned unchanged so raw codes pass through.
func ResolveOption(field, v string) string {
	v = strings.TrimSpace(v)
	for _, o := range FieldOptions(field) {
		if strings.EqualFold(o.Label, v) {
			return o.Code
		}
	}
	return v
}

// Summary describes a loaded dataset.
type Summary struct {
	Rows       int                        `json:"rows" yaml:"rows"`
	Valid      int                        `json:"valid" yaml:"valid"`
	Scores     map[Subject]ScoreSummary   `json:"scores" yaml:"scores"`
	Categories map[string][]CategoryCount `json:"categories" yaml:"categories"`
}

// ScoreSummary holds streaming statistics over the valid rows.
type ScoreSummary struct {
	Count int     `json:"count" yaml:"count"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Std   float64 `json:"std" yaml:"std"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
}

// CategoryCount is how many valid rows carry one value of a field.
type CategoryCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// Summarize computes per-subject statistics and category frequencies over the
// valid records.
func Summarize(recs []Record) Summary {
	type acc struct {
		n        int
		mean, m2 float64
		min, max float64
	}
	accs := make(map[Subject]*acc, len(Subjects))
	cats := make(map[string]map[string]int, len(Fields))
	sum := Summary{Rows: len(recs), Scores: map[Subject]ScoreSummary{}, Categories: map[string][]CategoryCount{}}
	for _, r := range recs {
		if !r.Valid() {
			continue
		}
		sum.Valid++
		for _, s := range Subjects {
			x := r.Scores[s]
			a := accs[s]
			if a == nil {
				a = &acc{min: x, max: x}
				accs[s] = a
			}
			// Welford update
			a.n++
			if x < a.min {
				a.min = x
			}
			if x > a.max {
				a.max = x
			}
			delta := x - a.mean
			a.mean += delta / float64(a.n)
			a.m2 += delta * (x - a.mean)
		}
		for _, f := range Fields {
			if cats[f] == nil {
				cats[f] = map[string]int{}
			}
			v := r.Attrs[f]
			if f == FieldState {
				v = StateAbbreviation(v)
			}
			cats[f][v]++
		}
	}
	for s, a := range accs {
		ss := ScoreSummary{Count: a.n, Mean: a.mean, Min: a.min, Max: a.max}
		if a.n > 1 {
			ss.Std = math.Sqrt(a.m2 / float64(a.n-1))
		}
		sum.Scores[s] = ss
	}
	for f, m := range cats {
		counts := make([]CategoryCount, 0, len(m))
		for v, c := range m {
			counts = append(counts, CategoryCount{Value: v, Count: c})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].Count == counts[j].Count {
				return counts[i].Value < counts[j].Value
			}
			return counts[i].Count > counts[j].Count
		})
		sum.Categories[f] = counts
	}
	return sum
}
