package routes

import (
	"github.com/autolog/triage/internal/controllers"
	"github.com/autolog/triage/internal/metrics"
	"github.com/autolog/triage/internal/services"
	"github.com/autolog/triage/internal/triage"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, session *triage.Session, client *services.TriageClient, version string) {
	dashboardController := controllers.NewDashboardController(session, client, version)

	r.GET("/health", dashboardController.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API routes
	api := r.Group("/api/v1")
	{
		api.GET("/dashboard", dashboardController.GetDashboard)
		api.GET("/events", dashboardController.StreamEvents)

		// Ingestion
		ingest := api.Group("/ingest")
		{
			ingest.POST("/text", dashboardController.IngestText)
			ingest.POST("/file", dashboardController.IngestFile)
			ingest.POST("/demo", dashboardController.IngestDemo)
		}

		api.POST("/analyze", dashboardController.Analyze)

		// Results
		results := api.Group("/results")
		{
			results.GET("", dashboardController.GetResults)
			results.GET("/:id", dashboardController.GetResult)
		}

		// Triage service call history
		api.GET("/api-calls", dashboardController.GetAPICalls)
		api.DELETE("/api-calls", dashboardController.ClearAPICalls)
	}
}
