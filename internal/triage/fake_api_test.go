package triage

import (
	"context"
	"sync"

	"github.com/autolog/triage/internal/models"
)

// fakeAPI records every call and answers with the configured functions.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int
	texts [][]string

	ingestText  func(lines []string) (*models.IngestionSummary, error)
	ingestFile  func(file *models.LogFile) (*models.IngestionSummary, error)
	ingestDemo  func() (*models.IngestionSummary, error)
	runAnalysis func(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error)
	listResults func() (*models.ResultsPage, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int)}
}

func (f *fakeAPI) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) IngestText(ctx context.Context, lines []string) (*models.IngestionSummary, error) {
	f.record("ingest_text")
	f.mu.Lock()
	f.texts = append(f.texts, lines)
	f.mu.Unlock()
	if f.ingestText != nil {
		return f.ingestText(lines)
	}
	return &models.IngestionSummary{LogsReceived: len(lines), EmbeddingsStored: len(lines), TotalVectors: len(lines)}, nil
}

func (f *fakeAPI) IngestFile(ctx context.Context, file *models.LogFile) (*models.IngestionSummary, error) {
	f.record("ingest_file")
	if f.ingestFile != nil {
		return f.ingestFile(file)
	}
	return &models.IngestionSummary{LogsReceived: 1, EmbeddingsStored: 1, TotalVectors: 1}, nil
}

func (f *fakeAPI) IngestDemo(ctx context.Context) (*models.IngestionSummary, error) {
	f.record("ingest_demo")
	if f.ingestDemo != nil {
		return f.ingestDemo()
	}
	return &models.IngestionSummary{Status: "success", LogsReceived: 5, EmbeddingsStored: 5, TotalVectors: 5}, nil
}

func (f *fakeAPI) RunAnalysis(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error) {
	f.record("run_analysis")
	if f.runAnalysis != nil {
		return f.runAnalysis(ctx, req)
	}
	return newResult("r-1", models.SeverityP3), nil
}

func (f *fakeAPI) ListResults(ctx context.Context) (*models.ResultsPage, error) {
	f.record("list_results")
	if f.listResults != nil {
		return f.listResults()
	}
	return &models.ResultsPage{Results: []models.AnalysisResult{}}, nil
}

func newResult(id string, severity models.SeverityLevel) *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:        id,
		CreatedAt: models.ParseTimestamp("2024-05-01T10:00:00"),
		Analysis: models.AnalysisPayload{
			SeverityLevel:    severity,
			Summary:          "summary " + id,
			RootCause:        "cause",
			RecommendedOwner: "SRE",
			NextSteps:        "investigate",
		},
		Logs: []string{"ERROR " + id},
	}
}
