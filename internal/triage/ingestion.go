package triage

import (
	"context"
	"sync"

	"github.com/autolog/triage/internal/logger"
	"github.com/autolog/triage/internal/metrics"
	"github.com/autolog/triage/internal/models"
)

const (
	fallbackUpload     = "Upload failed"
	fallbackFileUpload = "File upload failed"
	fallbackDemo       = "Demo load failed"
)

// IngestionState is a point-in-time copy of the ingestion controller.
type IngestionState struct {
	HasIngestedAnyLogs bool                     `json:"has_ingested_any_logs" yaml:"has_ingested_any_logs"`
	LastSummary        *models.IngestionSummary `json:"last_summary,omitempty" yaml:"last_summary,omitempty"`
	Pending            bool                     `json:"pending" yaml:"pending"`
	LastError          *models.ErrorInfo        `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// IngestionController tracks whether any logs reached the service and allows
// one upload at a time.
type IngestionController struct {
	api        API
	notifier   *Notifier
	sessionID  string
	onIngested func(models.IngestionSummary)

	mu          sync.Mutex
	hasIngested bool
	lastSummary *models.IngestionSummary
	pending     bool
	lastError   *models.ErrorInfo
}

// NewIngestionController creates a controller. onIngested, when set, runs
// after every successful upload with the new summary.
func NewIngestionController(api API, notifier *Notifier, sessionID string, onIngested func(models.IngestionSummary)) *IngestionController {
	if notifier == nil {
		notifier = NewNotifier()
	}
	return &IngestionController{
		api:        api,
		notifier:   notifier,
		sessionID:  sessionID,
		onIngested: onIngested,
	}
}

// SubmitText uploads pasted text, one log line per non-blank line.
func (c *IngestionController) SubmitText(ctx context.Context, raw string) (*models.IngestionSummary, error) {
	lines := models.SplitLogLines(raw)
	if len(lines) == 0 {
		return nil, models.NewValidationError("no log lines to upload")
	}
	return c.submit(ctx, models.SourceText, fallbackUpload, func(ctx context.Context) (*models.IngestionSummary, error) {
		return c.api.IngestText(ctx, lines)
	})
}

func (c *IngestionController) SubmitFile(ctx context.Context, file *models.LogFile) (*models.IngestionSummary, error) {
	if file == nil || file.Filename == "" || file.Data == nil {
		return nil, models.NewValidationError("no file selected")
	}
	return c.submit(ctx, models.SourceFile, fallbackFileUpload, func(ctx context.Context) (*models.IngestionSummary, error) {
		return c.api.IngestFile(ctx, file)
	})
}

func (c *IngestionController) SubmitDemo(ctx context.Context) (*models.IngestionSummary, error) {
	return c.submit(ctx, models.SourceDemo, fallbackDemo, c.api.IngestDemo)
}

func (c *IngestionController) submit(ctx context.Context, source models.IngestionSource, fallback string, call func(context.Context) (*models.IngestionSummary, error)) (*models.IngestionSummary, error) {
	log := logger.WithController(c.sessionID, "ingestion").WithField("source", source)

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		metrics.GuardRejectionsTotal.WithLabelValues("ingestion", "pending").Inc()
		log.Debug("Rejected ingestion, another upload is in progress")
		return nil, models.NewStateError(models.MsgIngestionInProgress)
	}
	c.pending = true
	c.lastError = nil
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
	}()

	c.notifier.Publish(Event{Type: EventIngestionStarted, SessionID: c.sessionID, Source: source})
	log.Info("Uploading logs")

	summary, err := call(ctx)
	if err != nil {
		info := models.NewErrorInfo(err, fallback)

		c.mu.Lock()
		c.lastError = info
		c.pending = false
		c.mu.Unlock()

		metrics.IngestionsTotal.WithLabelValues(string(source), metrics.OutcomeError).Inc()
		log.WithField("error", info.Message).Error("Log upload failed")
		c.notifier.Publish(Event{Type: EventIngestionFailed, SessionID: c.sessionID, Source: source, Error: info})
		return nil, err
	}
	if summary == nil {
		summary = &models.IngestionSummary{}
	}

	stored := *summary
	c.mu.Lock()
	c.lastSummary = &stored
	c.hasIngested = true
	c.pending = false
	c.mu.Unlock()

	if c.onIngested != nil {
		c.onIngested(stored)
	}

	metrics.IngestionsTotal.WithLabelValues(string(source), metrics.OutcomeSuccess).Inc()
	log.WithFields(map[string]interface{}{
		"logs_received":     stored.LogsReceived,
		"embeddings_stored": stored.EmbeddingsStored,
		"total_vectors":     stored.TotalVectors,
	}).Info("Logs uploaded")
	c.notifier.Publish(Event{Type: EventIngestionSucceeded, SessionID: c.sessionID, Source: source, Summary: &stored})

	return summary, nil
}

// HasIngestedAnyLogs is the gate for running an analysis.
func (c *IngestionController) HasIngestedAnyLogs() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasIngested
}

// MarkIngested records that the service already holds logs from an earlier
// session.
func (c *IngestionController) MarkIngested() {
	c.mu.Lock()
	c.hasIngested = true
	c.mu.Unlock()
}

func (c *IngestionController) State() IngestionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := IngestionState{
		HasIngestedAnyLogs: c.hasIngested,
		Pending:            c.pending,
	}
	if c.lastSummary != nil {
		summary := *c.lastSummary
		state.LastSummary = &summary
	}
	if c.lastError != nil {
		info := *c.lastError
		state.LastError = &info
	}
	return state
}
