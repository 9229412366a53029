package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestExtractForecastFromStdin(t *testing.T) {
	out, _, err := execute(t, "Sure! Here you go:\n```json\n[12.5, 13, 14.25]\n```", "extract", "--kind", "forecast", "--horizon", "3")
	require.NoError(t, err)

	var report extractReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, []float64{12.5, 13, 14.25}, report.Values)
	require.Contains(t, report.Steps, "unfence")
}

func TestExtractDriftFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.txt")
	raw := `[{"timestamp": "2025-01-02", "usage": 10, "drift": false},
{"timestamp": "2025-01-03", "usage": 30, "drift": true, "note": "spike"}]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	out, _, err := execute(t, "", "extract", "--kind", "drift", "--horizon", "0", path)
	require.NoError(t, err)

	var report extractReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Records, 2)
	require.Equal(t, true, report.Records[1]["drift"])
	require.NotContains(t, report.Payload, "note")
}

func TestExtractCountMismatch(t *testing.T) {
	_, errOut, err := execute(t, "[1,2]", "extract", "--kind", "forecast", "--horizon", "3")
	require.Error(t, err)
	require.Contains(t, errOut, "[1,2]")
}

func TestForecastChart(t *testing.T) {
	chart := forecastChart(analysis.ForecastResponse{
		Source:   "usage",
		Horizon:  2,
		Interval: "1d",
		Points: []analysis.ForecastPoint{
			{Timestamp: "2025-01-01", Usage: 10, Type: "actual"},
			{Timestamp: "2025-01-02", Usage: 12, Type: "actual"},
			{Timestamp: "2025-01-03", Usage: 14, Type: "forecast"},
			{Timestamp: "2025-01-04", Usage: 15, Type: "forecast"},
		},
	})
	require.Contains(t, chart, "2-step forecast every 1d")
	require.Contains(t, chart, "2025-01-01 .. 2025-01-04")
	require.NotContains(t, chart, "NaN")
}

func TestDriftChartListsFlaggedPoints(t *testing.T) {
	div := 0.25
	chart := driftChart(analysis.DriftResponse{
		Divergence: &div,
		Source:     "usage",
		Start:      "2025-01-01",
		End:        "2025-01-03",
		DriftCount: 1,
		Points: []analysis.DriftPoint{
			{Timestamp: "2025-01-01", Usage: 10},
			{Timestamp: "2025-01-02", Usage: 40, Drift: true},
			{Timestamp: "2025-01-03", Usage: 11},
		},
	})
	require.Contains(t, chart, "drift at 2025-01-02")
	require.NotContains(t, chart, "drift at 2025-01-01")
	require.Contains(t, chart, "half-window divergence 0.250")
}

func TestParseWindowFlag(t *testing.T) {
	ts, err := parseWindowFlag("start", "2025-01-02")
	require.NoError(t, err)
	require.Equal(t, 2, ts.Day())

	ts, err = parseWindowFlag("start", "")
	require.NoError(t, err)
	require.True(t, ts.IsZero())

	_, err = parseWindowFlag("start", "tomorrow")
	require.Error(t, err)
}
