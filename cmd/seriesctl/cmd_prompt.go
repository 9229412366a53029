package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanqian/usage-forecaster/internal/domain/analysis"
)

var (
	promptKind    string
	promptSource  string
	promptHorizon int
	promptStart   string
	promptEnd     string
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Render the prompt that would be sent to the responder",
	Long: `Loads the source, applies the window and token budget and prints the exact
prompt text. Nothing is sent to the responder.`,
	Args: cobra.NoArgs,
	RunE: runPrompt,
}

func init() {
	promptCmd.Flags().StringVar(&promptKind, "kind", "forecast", "Prompt kind: forecast or drift")
	promptCmd.Flags().StringVar(&promptSource, "source", "", "Dataset id (default dataset when empty)")
	promptCmd.Flags().IntVar(&promptHorizon, "horizon", 0, "Forecast horizon (configured default when 0)")
	promptCmd.Flags().StringVar(&promptStart, "start", "", "Drift window start")
	promptCmd.Flags().StringVar(&promptEnd, "end", "", "Drift window end")
	rootCmd.AddCommand(promptCmd)
}

func runPrompt(cmd *cobra.Command, _ []string) error {
	start, err := parseWindowFlag("start", promptStart)
	if err != nil {
		return err
	}
	end, err := parseWindowFlag("end", promptEnd)
	if err != nil {
		return err
	}

	env, err := newEnvironment(cmd)
	if err != nil {
		return err
	}
	defer env.cleanup()

	spec, err := env.svc.Preview(cmd.Context(), analysis.PreviewRequest{
		Kind:     promptKind,
		SourceID: promptSource,
		Horizon:  promptHorizon,
		Start:    start,
		End:      end,
	})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), spec.Render())
	fmt.Fprintf(cmd.ErrOrStderr(), "\n-- %d rows, %d expected records\n", spec.Window.Len(), spec.ExpectedCount())
	return nil
}
