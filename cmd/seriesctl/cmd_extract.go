package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanqian/usage-forecaster/internal/domain/extract"
	"github.com/yanqian/usage-forecaster/internal/domain/prompt"
	"github.com/yanqian/usage-forecaster/internal/domain/schema"
)

var (
	extractKind    string
	extractHorizon int
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Run the extractor and validator on saved responder output",
	Long: `Reads raw responder text from a file (or stdin when no file or "-" is given),
repairs it the same way the service does and validates it against the forecast
or drift schema. Prints the validated records as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractKind, "kind", "forecast", "Output kind: forecast or drift")
	extractCmd.Flags().IntVar(&extractHorizon, "horizon", 0, "Expected forecast values (0 skips the count check)")
	rootCmd.AddCommand(extractCmd)
}

type extractReport struct {
	Steps   []string         `json:"steps"`
	Dropped int              `json:"dropped"`
	Payload string           `json:"payload"`
	Values  []float64        `json:"values,omitempty"`
	Records []map[string]any `json:"records,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	var (
		opts extract.Options
		sch  schema.Schema
	)
	switch prompt.Kind(extractKind) {
	case prompt.KindForecast:
		opts = extract.Options{Mode: extract.ModeNumbers}
		sch = prompt.ForecastSchema(extractHorizon)
	case prompt.KindDrift:
		sch = prompt.DriftSchema()
		opts = extract.Options{Mode: extract.ModeRecords, RequiredFields: sch.FieldNames()}
	default:
		return fmt.Errorf("unknown kind %q", extractKind)
	}

	res, err := extract.Extract(raw, opts)
	if err != nil {
		return err
	}
	records, err := sch.Validate(res.Payload)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "-- repaired payload --\n%s\n", res.Payload)
		return err
	}

	report := extractReport{Steps: res.Applied, Dropped: res.Dropped, Payload: res.Payload}
	if report.Steps == nil {
		report.Steps = []string{}
	}
	if sch.IsRecord() {
		for _, r := range records {
			report.Records = append(report.Records, r.Values)
		}
	} else {
		report.Values = schema.Floats(records)
	}
	return writeJSON(cmd.OutOrStdout(), report)
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}
