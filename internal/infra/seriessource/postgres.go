package seriessource

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/usage-forecaster/internal/domain/series"
)

// PostgresTable reads a series from one table using pgx.
type PostgresTable struct {
	pool  *pgxpool.Pool
	table string
	cols  Columns
}

// NewPostgresTable constructs the source. table may be schema qualified.
func NewPostgresTable(pool *pgxpool.Pool, table string, cols Columns) *PostgresTable {
	return &PostgresTable{pool: pool, table: table, cols: cols.withDefaults()}
}

// Rows implements series.Source. Values are cast to text so the loader owns
// all parsing.
func (p *PostgresTable) Rows(ctx context.Context) ([]series.RawRow, error) {
	ts := pgx.Identifier{p.cols.Timestamp}.Sanitize()
	val := pgx.Identifier{p.cols.Value}.Sanitize()
	query := fmt.Sprintf(`
		SELECT %s::text, %s::text
		FROM %s
		ORDER BY %s
	`, ts, val, pgx.Identifier(strings.Split(p.table, ".")).Sanitize(), ts)

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []series.RawRow
	for rows.Next() {
		var tsText, valText *string
		if err := rows.Scan(&tsText, &valText); err != nil {
			return nil, err
		}
		out = append(out, series.RawRow{Timestamp: deref(tsText), Value: deref(valText)})
	}
	return out, rows.Err()
}

// Describe implements series.Source.
func (p *PostgresTable) Describe() string {
	return "postgres:" + p.table
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ series.Source = (*PostgresTable)(nil)
