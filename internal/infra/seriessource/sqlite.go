package seriessource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/yanqian/usage-forecaster/internal/domain/series"
)

// SQLiteTable reads a series from a table in a SQLite database file.
type SQLiteTable struct {
	db    *sql.DB
	path  string
	table string
	cols  Columns
}

// OpenSQLiteTable opens the database read-only.
func OpenSQLiteTable(path, table string, cols Columns) (*SQLiteTable, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &SQLiteTable{db: db, path: path, table: table, cols: cols.withDefaults()}, nil
}

// Rows implements series.Source.
func (s *SQLiteTable) Rows(ctx context.Context) ([]series.RawRow, error) {
	ts := quoteIdent(s.cols.Timestamp)
	query := fmt.Sprintf(`SELECT CAST(%s AS TEXT), CAST(%s AS TEXT) FROM %s ORDER BY %s`,
		ts, quoteIdent(s.cols.Value), quoteIdent(s.table), ts)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []series.RawRow
	for rows.Next() {
		var tsText, valText sql.NullString
		if err := rows.Scan(&tsText, &valText); err != nil {
			return nil, err
		}
		out = append(out, series.RawRow{Timestamp: tsText.String, Value: valText.String})
	}
	return out, rows.Err()
}

// Describe implements series.Source.
func (s *SQLiteTable) Describe() string {
	return "sqlite:" + s.path + "#" + s.table
}

// Close releases the database handle.
func (s *SQLiteTable) Close() error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var _ series.Source = (*SQLiteTable)(nil)
