package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"
)

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadSQLite reads records from opt.Table in the SQLite database at path.
// The table must carry the same columns as the CSV source.
func LoadSQLite(ctx context.Context, path string, opt Options) ([]Record, error) {
	table := opt.Table
	if table == "" {
		table = DefaultOptions().Table
	}
	if !tableNameRegex.MatchString(table) {
		return nil, &DataLoadError{Path: path, Err: fmt.Errorf("invalid table name: %q", table)}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: fmt.Errorf("open database: %w", err)}
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return nil, &DataLoadError{Path: path, Err: fmt.Errorf("ping database: %w", err)}
	}

	q := "SELECT * FROM " + table
	if opt.MaxRows > 0 {
		q += fmt.Sprintf(" LIMIT %d", opt.MaxRows)
	}
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: fmt.Errorf("query %s: %w", table, err)}
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: fmt.Errorf("columns: %w", err)}
	}
	idx, err := columnIndex(header)
	if err != nil {
		var dle *DataLoadError
		if errors.As(err, &dle) {
			dle.Path = path
			return nil, dle
		}
		return nil, &DataLoadError{Path: path, Err: err}
	}

	vals := make([]sql.NullString, len(header))
	ptrs := make([]any, len(header))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	var out []Record
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &DataLoadError{Path: path, Err: fmt.Errorf("scan row %d: %w", len(out)+1, err)}
		}
		out = append(out, idx.record(func(i int) string {
			if !vals[i].Valid {
				return ""
			}
			return strings.TrimSpace(vals[i].String)
		}))
	}
	if err := rows.Err(); err != nil {
		return nil, &DataLoadError{Path: path, Err: fmt.Errorf("iterate rows: %w", err)}
	}
	return out, nil
}
