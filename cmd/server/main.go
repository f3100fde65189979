package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/autolog/triage/internal/config"
	"github.com/autolog/triage/internal/logger"
	"github.com/autolog/triage/internal/middleware"
	"github.com/autolog/triage/internal/routes"
	"github.com/autolog/triage/internal/services"
	"github.com/autolog/triage/internal/triage"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Initialize logger first
	logger.Initialize(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	client := services.NewTriageClient(services.ClientOptions{
		BaseURL:     cfg.APIURL,
		Timeout:     cfg.APITimeout,
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
		CallHistory: cfg.APICallHistory,
	})
	session := triage.NewSession(client)

	// Set Gin mode
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router without default middleware
	r := gin.New()

	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.CustomLoggerMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigin))
	r.Use(gin.Recovery())

	routes.SetupRoutes(r, session, client, config.Version)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	logger.Info("Starting triage dashboard server", map[string]interface{}{
		"port":     cfg.Port,
		"gin_mode": gin.Mode(),
		"api_url":  cfg.APIURL,
		"version":  config.Version,
	})

	g, gctx := errgroup.WithContext(ctx)

	// History load runs next to the listener so a slow service never delays startup
	g.Go(func() error {
		session.Initialize(gctx)
		return nil
	})

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server gracefully...", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}
		logger.Info("Server exited gracefully", nil)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}
