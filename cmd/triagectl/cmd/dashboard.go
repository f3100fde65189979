package cmd

import (
	"context"

	"github.com/autolog/triage/internal/models"
	"github.com/autolog/triage/internal/triage"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show counters and the results history",
	Long: `Show vectors stored, analyses run and critical issues, followed by
every analysis result, newest first. An unreachable service shows an empty
dashboard and a warning rather than failing.`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	var loadErr *models.ErrorInfo
	unsubscribe := a.session.Subscribe(func(ev triage.Event) {
		if ev.Type == triage.EventResultsLoadFailed {
			loadErr = ev.Error
		}
	})
	defer unsubscribe()

	var healthErr error
	g, ctx := errgroup.WithContext(commandContext(cmd))
	g.Go(func() error {
		a.session.Initialize(ctx)
		return nil
	})
	g.Go(func() error {
		hctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
		_, healthErr = a.client.Health(hctx)
		return nil
	})
	g.Wait()

	if healthErr != nil {
		PrintError("triage service health check failed: "+models.ErrorMessage(healthErr, "unreachable"), false)
	}
	if loadErr != nil {
		PrintError("could not load results history: "+loadErr.Message, false)
	}

	return a.renderer.Dashboard(a.session.Snapshot())
}
