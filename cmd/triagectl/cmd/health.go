package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
)

const healthCheckTimeout = 10 * time.Second

var errUnhealthy = errors.New("triage service is unhealthy")

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the triage service is reachable",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), healthCheckTimeout)
	defer cancel()

	status, err := a.client.Health(ctx)
	if rerr := a.renderer.Health(a.client.BaseURL(), status, err); rerr != nil {
		return rerr
	}
	if err != nil {
		return errUnhealthy
	}
	return nil
}
