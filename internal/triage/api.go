// Package triage holds the session state behind the incident triage
// dashboard: ingestion progress, single-flight analysis and the results
// history with its derived counters.
package triage

import (
	"context"

	"github.com/autolog/triage/internal/models"
)

// API is the subset of the triage service client the session needs.
// *services.TriageClient satisfies it.
type API interface {
	IngestText(ctx context.Context, lines []string) (*models.IngestionSummary, error)
	IngestFile(ctx context.Context, file *models.LogFile) (*models.IngestionSummary, error)
	IngestDemo(ctx context.Context) (*models.IngestionSummary, error)
	RunAnalysis(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error)
	ListResults(ctx context.Context) (*models.ResultsPage, error)
}
