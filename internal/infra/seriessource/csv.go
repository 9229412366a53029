package seriessource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yanqian/usage-forecaster/internal/domain/series"
)

// Columns maps the timestamp and value columns of a source.
type Columns struct {
	Timestamp string
	Value     string
}

// DefaultColumns matches the exported usage CSVs.
var DefaultColumns = Columns{Timestamp: "timestamp", Value: "usage"}

func (c Columns) withDefaults() Columns {
	if strings.TrimSpace(c.Timestamp) == "" {
		c.Timestamp = DefaultColumns.Timestamp
	}
	if strings.TrimSpace(c.Value) == "" {
		c.Value = DefaultColumns.Value
	}
	return c
}

// ReadCSV reads the mapped columns from a CSV stream with a header row.
// Header names match case-insensitively.
func ReadCSV(r io.Reader, cols Columns) ([]series.RawRow, error) {
	cols = cols.withDefaults()
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	tsIdx, valIdx := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch {
		case strings.EqualFold(name, cols.Timestamp):
			tsIdx = i
		case strings.EqualFold(name, cols.Value):
			valIdx = i
		}
	}
	if tsIdx < 0 || valIdx < 0 {
		return nil, fmt.Errorf("csv header %v lacks columns %q and %q", header, cols.Timestamp, cols.Value)
	}

	var rows []series.RawRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rows = append(rows, series.RawRow{
			Timestamp: field(record, tsIdx),
			Value:     field(record, valIdx),
		})
	}
	return rows, nil
}

func field(record []string, idx int) string {
	if idx < len(record) {
		return record[idx]
	}
	return ""
}

// CSVFile reads a series from a local CSV file on every call.
type CSVFile struct {
	path string
	cols Columns
}

// NewCSVFile constructs a file source.
func NewCSVFile(path string, cols Columns) *CSVFile {
	return &CSVFile{path: path, cols: cols}
}

// Rows implements series.Source.
func (f *CSVFile) Rows(_ context.Context) ([]series.RawRow, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCSV(file, f.cols)
}

// Describe implements series.Source.
func (f *CSVFile) Describe() string {
	return "csv:" + f.path
}

var _ series.Source = (*CSVFile)(nil)
