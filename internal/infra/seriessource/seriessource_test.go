package seriessource

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
	"github.com/yanqian/usage-forecaster/internal/domain/series"
)

func TestReadCSVMapsColumns(t *testing.T) {
	input := "\ufeffDates,Other,Usage\n2025-01-01,x,10.5\n2025-01-02,y\n2025-01-03,z,12\n"

	rows, err := ReadCSV(strings.NewReader(input), Columns{Timestamp: "dates", Value: "usage"})
	require.NoError(t, err)
	require.Equal(t, []series.RawRow{
		{Timestamp: "2025-01-01", Value: "10.5"},
		{Timestamp: "2025-01-02", Value: ""},
		{Timestamp: "2025-01-03", Value: "12"},
	}, rows)
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("when,used\n2025-01-01,1\n"), Columns{})
	require.Error(t, err)
}

func TestCSVFileFeedsLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.csv")
	content := "timestamp,usage\n2025-01-01,10.0\n2025-01-02,bad\n2025-01-03,12.0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := series.Load(context.Background(), NewCSVFile(path, Columns{}), series.LoadOptions{Layout: time.DateOnly})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
}

func TestSQLiteTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE daily_usage (day TEXT, used REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO daily_usage VALUES ('2025-01-02', 11.5), ('2025-01-01', 10), (NULL, 3)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	src, err := OpenSQLiteTable(path, "daily_usage", Columns{Timestamp: "day", Value: "used"})
	require.NoError(t, err)
	defer src.Close()

	s, err := series.Load(context.Background(), src, series.LoadOptions{Layout: time.DateOnly})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	last, _ := s.Last()
	require.Equal(t, 11.5, last.Value)
}

func TestRegistry(t *testing.T) {
	a := analysis.Dataset{ID: "a", Source: NewCSVFile("a.csv", Columns{})}
	b := analysis.Dataset{ID: "b", Source: NewCSVFile("b.csv", Columns{})}

	reg, err := NewRegistry("b", a, b)
	require.NoError(t, err)

	ds, ok := reg.Dataset("")
	require.True(t, ok)
	require.Equal(t, "b", ds.ID)
	_, ok = reg.Dataset("c")
	require.False(t, ok)
	require.Equal(t, []string{"a", "b"}, reg.IDs())

	_, err = NewRegistry("missing", a)
	require.Error(t, err)
	_, err = NewRegistry("a", a, a)
	require.Error(t, err)
}

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "acct.r2.cloudflarestorage.com", sanitizeEndpoint("https://acct.r2.cloudflarestorage.com/bucket"))
	require.Equal(t, "localhost:9000", sanitizeEndpoint("http://localhost:9000"))
}
