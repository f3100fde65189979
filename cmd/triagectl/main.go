// Package main is the entry point for the triagectl CLI tool.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/autolog/triage/cmd/triagectl/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		cmd.PrintError(err.Error(), true)
	}
}
