package cmd

import (
	"fmt"
	"strings"

	"github.com/autolog/triage/internal/models"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Upload logs to the triage service",
	Long: `Upload logs so they can be analyzed. Logs can be pasted text, a file
(JSON, CSV or plain text, decoded by the service) or the service's demo set.`,
}

var ingestTextCmd = &cobra.Command{
	Use:   "text [line...]",
	Short: "Upload log lines given as arguments or on stdin",
	Long: `Upload log lines. Each argument is one line; without arguments the
lines are read from stdin. Blank lines are dropped.

Examples:
  triagectl ingest text "ERROR: timeout" "WARNING: spike"
  journalctl -u api --since -1h | triagectl ingest text`,
	RunE: runIngestText,
}

var ingestFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Upload a log file",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestFile,
}

var ingestDemoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Load the service's demo logs",
	Args:  cobra.NoArgs,
	RunE:  runIngestDemo,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestTextCmd)
	ingestCmd.AddCommand(ingestFileCmd)
	ingestCmd.AddCommand(ingestDemoCmd)
}

func runIngestText(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	raw := strings.Join(args, "\n")
	if len(args) == 0 {
		PrintVerbose("Reading log lines from stdin...")
		if raw, err = readAllInput(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	summary, err := a.session.Ingestion.SubmitText(commandContext(cmd), raw)
	if err != nil {
		return fmt.Errorf("upload logs: %s", models.ErrorMessage(err, "Upload failed"))
	}
	return a.renderer.Summary(*summary)
}

func runIngestFile(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	file, closer, err := models.OpenLogFile(args[0])
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closer.Close()

	PrintVerbose("Uploading %s (%d bytes)...", file.Filename, file.Size)

	summary, err := a.session.Ingestion.SubmitFile(commandContext(cmd), file)
	if err != nil {
		return fmt.Errorf("upload file: %s", models.ErrorMessage(err, "File upload failed"))
	}
	return a.renderer.Summary(*summary)
}

func runIngestDemo(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	summary, err := a.session.Ingestion.SubmitDemo(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("load demo logs: %s", models.ErrorMessage(err, "Demo load failed"))
	}
	return a.renderer.Summary(*summary)
}
