package cmd

import (
	"fmt"

	"github.com/autolog/triage/internal/models"
	"github.com/spf13/cobra"
)

var (
	analyzeQuery string
	analyzeLogs  []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run an incident analysis",
	Long: `Ask the triage service to analyze logs. Without --log the service
analyzes the logs it ingested most recently. Analysis needs logs to have been
ingested, in this or an earlier session.

Examples:
  triagectl analyze
  triagectl analyze --query "what broke the payment flow?"
  triagectl analyze --log "ERROR: db timeout" --log "WARN: pool at 95%"`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeQuery, "query", "q", "", "question to guide the analysis")
	analyzeCmd.Flags().StringArrayVarP(&analyzeLogs, "log", "l", nil, "log line to analyze (repeatable)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	a.session.Initialize(ctx)

	PrintVerbose("Running analysis, this can take up to %s...", a.cfg.APITimeout)

	result, err := a.session.Analysis.Analyze(ctx, analyzeLogs, analyzeQuery)
	if err != nil {
		return fmt.Errorf("analysis: %s", models.ErrorMessage(err, "Analysis failed"))
	}
	return a.renderer.Result(*result)
}
