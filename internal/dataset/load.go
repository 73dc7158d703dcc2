package dataset

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Source column holding the municipality code of the school.
const ColumnMunicipality = "CO_MUNICIPIO_ESC"

// DataLoadError reports an unreadable dataset or one missing expected columns.
type DataLoadError struct {
	Path    string
	Missing []string
	Err     error
}

func (e *DataLoadError) Error() string {
	if e == nil {
		return "data load failed"
	}
	if len(e.Missing) > 0 {
		return fmt.Sprintf("data load %s: missing columns %s", e.Path, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("data load %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// Options controls dataset loading.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the header line among ',', ';', '\t'.
	Delimiter rune
	// Table is the SQLite table to read.
	Table string
	// MaxRows limits rows read; 0 means unlimited.
	MaxRows int
}

// DefaultOptions returns the loader defaults.
func DefaultOptions() Options {
	return Options{Table: "microdados"}
}

// Load reads a dataset, choosing the source by file extension.
func Load(ctx context.Context, path string, opt Options) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return LoadSQLite(ctx, path, opt)
	default:
		return LoadCSV(path, opt)
	}
}

// LoadCSV reads a delimited file from disk.
func LoadCSV(path string, opt Options) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: fmt.Errorf("open csv: %w", err)}
	}
	defer f.Close()
	recs, err := ReadCSV(f, opt)
	if err != nil {
		var dle *DataLoadError
		if errors.As(err, &dle) {
			dle.Path = path
			return nil, dle
		}
		return nil, &DataLoadError{Path: path, Err: err}
	}
	return recs, nil
}

// ReadCSV parses records from r. The header must name every score column,
// the four questionnaire columns and either CO_MUNICIPIO_ESC or
// SG_UF_RESIDENCIA. Extra columns are ignored.
func ReadCSV(r io.Reader, opt Options) ([]Record, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &DataLoadError{Err: fmt.Errorf("read header: %w", err)}
	}
	if strings.TrimSpace(first) == "" {
		return nil, &DataLoadError{Err: errors.New("empty dataset")}
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(first)
	}
	cr := csv.NewReader(io.MultiReader(strings.NewReader(first), br))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, &DataLoadError{Err: fmt.Errorf("read header: %w", err)}
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var out []Record
	for row := 1; ; row++ {
		if opt.MaxRows > 0 && len(out) >= opt.MaxRows {
			break
		}
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &DataLoadError{Err: fmt.Errorf("read row %d: %w", row, err)}
		}
		out = append(out, idx.record(func(i int) string {
			if i < len(rec) {
				return rec[i]
			}
			return ""
		}))
	}
	return out, nil
}

type columns struct {
	scores map[Subject]int
	attrs  map[string]int
}

func columnIndex(header []string) (*columns, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[headerKey(h)] = i
	}
	c := &columns{scores: map[Subject]int{}, attrs: map[string]int{}}
	var missing []string
	for _, s := range Subjects {
		i, ok := pos[string(s)]
		if !ok {
			missing = append(missing, string(s))
			continue
		}
		c.scores[s] = i
	}
	for _, f := range Fields {
		if f == FieldState {
			// The municipality code wins; its prefix carries the state.
			if i, ok := pos[ColumnMunicipality]; ok {
				c.attrs[f] = i
			} else if i, ok := pos[FieldState]; ok {
				c.attrs[f] = i
			} else {
				missing = append(missing, ColumnMunicipality+"|"+FieldState)
			}
			continue
		}
		i, ok := pos[f]
		if !ok {
			missing = append(missing, f)
			continue
		}
		c.attrs[f] = i
	}
	if len(missing) > 0 {
		return nil, &DataLoadError{Missing: missing}
	}
	return c, nil
}

func (c *columns) record(get func(int) string) Record {
	r := Record{Scores: make(map[Subject]float64, len(Subjects)), Attrs: make(map[string]string, len(Fields))}
	for s, i := range c.scores {
		if v, ok := parseScore(get(i)); ok {
			r.Scores[s] = v
		}
	}
	for f, i := range c.attrs {
		r.Attrs[f] = NormalizeCode(get(i))
	}
	return r
}

// parseScore accepts '.' or ',' decimals; blanks and NaN markers are missing.
func parseScore(s string) (float64, bool) {
	v := strings.TrimSpace(s)
	switch strings.ToLower(v) {
	case "", "nan", "na", "null":
		return 0, false
	}
	if !strings.Contains(v, ".") {
		v = strings.ReplaceAll(v, ",", ".")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NormalizeCode trims a categorical value and drops the ".0" suffix that
// float-typed exports add to integer codes. NaN markers become blank.
func NormalizeCode(s string) string {
	v := strings.TrimSpace(s)
	if strings.EqualFold(v, "nan") {
		return ""
	}
	if head, ok := strings.CutSuffix(v, ".0"); ok && head != "" && allDigits(head) {
		return head
	}
	return v
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func sniffDelimiter(line string) rune {
	best, n := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if c := strings.Count(line, string(d)); c > n {
			best, n = d, c
		}
	}
	return best
}

// headerKey normalizes a header cell, stripping a UTF-8 BOM on the first column.
func headerKey(h string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(h), "\ufeff"))
}
