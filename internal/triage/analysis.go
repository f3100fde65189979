package triage

import (
	"context"
	"sync"

	"github.com/autolog/triage/internal/logger"
	"github.com/autolog/triage/internal/metrics"
	"github.com/autolog/triage/internal/models"
)

const fallbackAnalysis = "Analysis failed"

// AnalysisState is a point-in-time copy of the analysis controller.
type AnalysisState struct {
	Running   bool              `json:"running" yaml:"running"`
	LastError *models.ErrorInfo `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// AnalysisController runs at most one analysis at a time and prepends each
// successful result to the store.
type AnalysisController struct {
	api       API
	store     *ResultsStore
	ingested  func() bool
	notifier  *Notifier
	sessionID string

	mu        sync.Mutex
	running   bool
	lastError *models.ErrorInfo
}

// NewAnalysisController creates a controller. ingested reports whether any
// logs reached the service; analysis is refused until it returns true.
func NewAnalysisController(api API, store *ResultsStore, ingested func() bool, notifier *Notifier, sessionID string) *AnalysisController {
	if notifier == nil {
		notifier = NewNotifier()
	}
	return &AnalysisController{
		api:       api,
		store:     store,
		ingested:  ingested,
		notifier:  notifier,
		sessionID: sessionID,
	}
}

// Analyze asks the service for a verdict. With no logs and no query the
// service analyzes what it ingested last. Failures are never retried.
func (c *AnalysisController) Analyze(ctx context.Context, logs []string, query string) (*models.AnalysisResult, error) {
	log := logger.WithController(c.sessionID, "analysis")

	if c.ingested != nil && !c.ingested() {
		metrics.GuardRejectionsTotal.WithLabelValues("analysis", "no_logs").Inc()
		log.Debug("Rejected analysis, no logs ingested")
		return nil, models.NewStateError(models.MsgNoLogsIngested)
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		metrics.GuardRejectionsTotal.WithLabelValues("analysis", "running").Inc()
		log.Debug("Rejected analysis, one is already running")
		return nil, models.NewStateError(models.MsgAnalysisRunning)
	}
	c.running = true
	c.lastError = nil
	c.mu.Unlock()

	metrics.AnalysesInFlight.Inc()
	defer func() {
		metrics.AnalysesInFlight.Dec()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.notifier.Publish(Event{Type: EventAnalysisStarted, SessionID: c.sessionID})
	log.Info("Running incident analysis")

	result, err := c.api.RunAnalysis(ctx, models.AnalyzeRequest{Logs: logs, Query: query})
	if err == nil && result == nil {
		err = &models.TransportError{Op: "run_analysis", Detail: "empty analysis response"}
	}
	if err != nil {
		info := models.NewErrorInfo(err, fallbackAnalysis)

		c.mu.Lock()
		c.lastError = info
		c.running = false
		c.mu.Unlock()

		metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		log.WithField("error", info.Message).Error("Incident analysis failed")
		c.notifier.Publish(Event{Type: EventAnalysisFailed, SessionID: c.sessionID, Error: info})
		return nil, err
	}

	c.store.Prepend(*result)

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	metrics.AnalysesTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	log.WithFields(map[string]interface{}{
		"result_id": result.ID,
		"severity":  result.Analysis.SeverityLevel,
	}).Info("Incident analysis completed")
	c.notifier.Publish(Event{Type: EventAnalysisSucceeded, SessionID: c.sessionID, Result: result})

	return result, nil
}

func (c *AnalysisController) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *AnalysisController) State() AnalysisState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := AnalysisState{Running: c.running}
	if c.lastError != nil {
		info := *c.lastError
		state.LastError = &info
	}
	return state
}
