package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// RelevantColumns are the microdata columns kept by FilterMicrodata.
var RelevantColumns = []string{
	string(Math), string(Science), string(Languages), string(Humanities), string(Essay),
	FieldIncome, FieldMotherEducation, FieldSchoolType, FieldRace, ColumnMunicipality,
}

// FilterOptions controls raw microdata filtering.
type FilterOptions struct {
	// StateCode is the IBGE prefix matched against CO_MUNICIPIO_ESC, e.g. "23".
	StateCode string
	// Delimiter of the raw file; INEP publishes ';'.
	Delimiter rune
	// Latin1 decodes the input as ISO-8859-1.
	Latin1 bool
	// Progress, if set, is called every ProgressEvery rows read.
	Progress      func(read, kept int)
	ProgressEvery int
}

// FilterStats reports what FilterMicrodata did.
type FilterStats struct {
	Read int
	Kept int
}

// FilterMicrodata streams the raw INEP microdata from r, keeps RelevantColumns
// for rows whose school municipality starts with opt.StateCode, and writes a
// comma-separated UTF-8 CSV to w.
func FilterMicrodata(r io.Reader, w io.Writer, opt FilterOptions) (FilterStats, error) {
	var st FilterStats
	if strings.TrimSpace(opt.StateCode) == "" {
		return st, errors.New("state code required")
	}
	if opt.Latin1 {
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = ';'
	}
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return st, &DataLoadError{Err: fmt.Errorf("read header: %w", err)}
	}
	pos := map[string]int{}
	for i, h := range header {
		pos[headerKey(h)] = i
	}
	keep := make([]int, len(RelevantColumns))
	var missing []string
	for i, c := range RelevantColumns {
		p, ok := pos[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		keep[i] = p
	}
	if len(missing) > 0 {
		return st, &DataLoadError{Missing: missing}
	}
	muni := keep[len(keep)-1]

	cw := csv.NewWriter(w)
	if err := cw.Write(RelevantColumns); err != nil {
		return st, fmt.Errorf("write header: %w", err)
	}
	out := make([]string, len(keep))
	every := opt.ProgressEvery
	if every <= 0 {
		every = 100000
	}
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return st, &DataLoadError{Err: fmt.Errorf("read row %d: %w", st.Read+1, err)}
		}
		st.Read++
		if opt.Progress != nil && st.Read%every == 0 {
			opt.Progress(st.Read, st.Kept)
		}
		if muni >= len(rec) || !strings.HasPrefix(strings.TrimSpace(rec[muni]), opt.StateCode) {
			continue
		}
		for i, p := range keep {
			if p < len(rec) {
				out[i] = rec[p]
			} else {
				out[i] = ""
			}
		}
		if err := cw.Write(out); err != nil {
			return st, fmt.Errorf("write row: %w", err)
		}
		st.Kept++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return st, fmt.Errorf("flush csv: %w", err)
	}
	return st, nil
}
