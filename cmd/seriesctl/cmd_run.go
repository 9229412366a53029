package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
	apperrors "github.com/yanqian/usage-forecaster/pkg/errors"
)

var (
	runSource   string
	runChart    bool
	runHorizon  int
	runCombined bool
	runStart    string
	runEnd      string
	runDetailed bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast the next values of a dataset with the configured responder",
	Args:  cobra.NoArgs,
	RunE:  runForecast,
}

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Classify drift inside a window with the configured responder",
	Args:  cobra.NoArgs,
	RunE:  runDrift,
}

func init() {
	for _, c := range []*cobra.Command{forecastCmd, driftCmd} {
		c.Flags().StringVar(&runSource, "source", "", "Dataset id (default dataset when empty)")
		c.Flags().BoolVar(&runChart, "chart", false, "Print an ASCII chart instead of JSON")
	}
	forecastCmd.Flags().IntVar(&runHorizon, "horizon", 0, "Forecast horizon (configured default when 0)")
	forecastCmd.Flags().BoolVar(&runCombined, "combined", false, "Use the combined-forecast default horizon")
	driftCmd.Flags().StringVar(&runStart, "start", "", "Window start (YYYY-MM-DD or RFC3339)")
	driftCmd.Flags().StringVar(&runEnd, "end", "", "Window end (YYYY-MM-DD or RFC3339)")
	driftCmd.Flags().BoolVar(&runDetailed, "detailed", false, "Use the detailed rule and allow an open window")
	rootCmd.AddCommand(forecastCmd, driftCmd)
}

func runForecast(cmd *cobra.Command, _ []string) error {
	env, err := newEnvironment(cmd)
	if err != nil {
		return err
	}
	defer env.cleanup()

	variant := analysis.VariantStandard
	if runCombined {
		variant = analysis.VariantCombined
	}
	resp, err := env.svc.Forecast(cmd.Context(), analysis.ForecastRequest{
		SourceID: runSource,
		Horizon:  runHorizon,
		Variant:  variant,
	})
	if err != nil {
		return reportFailure(cmd, err)
	}
	if runChart {
		_, err = io.WriteString(cmd.OutOrStdout(), forecastChart(resp))
		return err
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}

func runDrift(cmd *cobra.Command, _ []string) error {
	start, err := parseWindowFlag("start", runStart)
	if err != nil {
		return err
	}
	end, err := parseWindowFlag("end", runEnd)
	if err != nil {
		return err
	}

	env, err := newEnvironment(cmd)
	if err != nil {
		return err
	}
	defer env.cleanup()

	variant := analysis.VariantStandard
	if runDetailed {
		variant = analysis.VariantDetailed
	}
	resp, err := env.svc.Drift(cmd.Context(), analysis.DriftRequest{
		SourceID: runSource,
		Start:    start,
		End:      end,
		Variant:  variant,
	})
	if err != nil {
		return reportFailure(cmd, err)
	}
	if runChart {
		_, err = io.WriteString(cmd.OutOrStdout(), driftChart(resp))
		return err
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}

// reportFailure prints the responder text behind a failure before returning it.
func reportFailure(cmd *cobra.Command, err error) error {
	if raw, ok := apperrors.RawOutput(err); ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "-- raw responder output --\n%s\n-- end raw output --\n", raw)
	}
	if code := apperrors.Code(err); code != "" {
		return fmt.Errorf("%s: %w", code, err)
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
