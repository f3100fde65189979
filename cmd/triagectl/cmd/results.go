package cmd

import (
	"fmt"

	"github.com/autolog/triage/internal/models"
	"github.com/spf13/cobra"
)

var resultsLimit int

var resultsCmd = &cobra.Command{
	Use:   "results [id]",
	Short: "List analysis results, newest first, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.Flags().IntVarP(&resultsLimit, "limit", "n", 0, "show at most n results (0 = all)")
}

func runResults(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	if len(args) == 1 {
		result, err := a.client.GetResult(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get result %s: %s", args[0], models.ErrorMessage(err, "Result not found"))
		}
		return a.renderer.Result(*result)
	}

	page, err := a.client.ListResults(ctx)
	if err != nil {
		return fmt.Errorf("list results: %s", models.ErrorMessage(err, "Failed to load results"))
	}

	history := page.Results
	if resultsLimit > 0 && len(history) > resultsLimit {
		history = history[:resultsLimit]
	}
	return a.renderer.Results(history)
}
