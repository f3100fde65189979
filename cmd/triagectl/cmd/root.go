// Package cmd contains the CLI commands for triagectl.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/autolog/triage/internal/config"
	"github.com/autolog/triage/internal/logger"
	"github.com/autolog/triage/internal/render"
	"github.com/autolog/triage/internal/services"
	"github.com/autolog/triage/internal/triage"
	"github.com/spf13/cobra"
)

var (
	// Used for flags
	verbose    bool
	output     string
	apiURL     string
	apiTimeout time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "triagectl",
	Short: "triagectl - incident triage from the command line",
	Long: `triagectl uploads system logs to the incident triage service, runs
analyses over them and shows the resulting severity-ranked history.

Examples:
  # Load the demo log set and analyze it
  triagectl ingest demo
  triagectl analyze

  # Upload a log file and show the dashboard
  triagectl ingest file /var/log/app/error.log
  triagectl dashboard

  # Pipe logs in and ask a question about them
  tail -n 200 app.log | triagectl ingest text
  triagectl analyze --query "why did checkout fail?"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "url", "", "triage service URL (default $TRIAGE_API_URL)")
	rootCmd.PersistentFlags().DurationVar(&apiTimeout, "timeout", 0, "request timeout (default $TRIAGE_API_TIMEOUT)")
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// PrintError prints an error message and exits if fatal is true.
func PrintError(msg string, fatal bool) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	if fatal {
		os.Exit(1)
	}
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// app bundles what a command needs to talk to the service.
type app struct {
	cfg      *config.Config
	client   *services.TriageClient
	session  *triage.Session
	renderer *render.Renderer
}

// newApp resolves configuration (flags over environment), sets up logging on
// stderr and builds a fresh session.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if apiTimeout > 0 {
		cfg.APITimeout = apiTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	format, err := render.ParseFormat(output)
	if err != nil {
		return nil, err
	}

	level := "WARN"
	if verbose {
		level = "DEBUG"
	}
	logger.Initialize(logger.Options{Level: level, File: cfg.LogFile, Output: cmd.ErrOrStderr()})

	client := services.NewTriageClient(services.ClientOptions{
		BaseURL:     cfg.APIURL,
		Timeout:     cfg.APITimeout,
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
		CallHistory: cfg.APICallHistory,
	})

	return &app{
		cfg:      cfg,
		client:   client,
		session:  triage.NewSession(client),
		renderer: render.New(cmd.OutOrStdout(), format),
	}, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func readAllInput(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
