package triage

import (
	"context"

	"github.com/autolog/triage/internal/logger"
	"github.com/autolog/triage/internal/models"
	"github.com/google/uuid"
)

// Session is one operator's dashboard state: a results store and the two
// controllers wired to it. Sessions share nothing, so several may coexist.
type Session struct {
	ID        string
	Results   *ResultsStore
	Ingestion *IngestionController
	Analysis  *AnalysisController

	notifier *Notifier
}

// Snapshot is a consistent view of a session for presentation layers.
type Snapshot struct {
	SessionID string                   `json:"session_id" yaml:"session_id"`
	Counters  models.DashboardCounters `json:"counters" yaml:"counters"`
	Ingestion IngestionState           `json:"ingestion" yaml:"ingestion"`
	Analysis  AnalysisState            `json:"analysis" yaml:"analysis"`
	History   []models.AnalysisResult  `json:"history" yaml:"history"`
}

func NewSession(api API) *Session {
	id := uuid.NewString()
	notifier := NewNotifier()
	store := NewResultsStore(api, notifier, id)
	ingestion := NewIngestionController(api, notifier, id, func(summary models.IngestionSummary) {
		store.SetTotalVectors(summary.TotalVectors)
	})
	analysis := NewAnalysisController(api, store, ingestion.HasIngestedAnyLogs, notifier, id)

	return &Session{
		ID:        id,
		Results:   store,
		Ingestion: ingestion,
		Analysis:  analysis,
		notifier:  notifier,
	}
}

// Initialize loads the results history. When the service already holds
// vectors from an earlier session, analysis is allowed straight away. It never
// fails; a load error leaves the session empty.
func (s *Session) Initialize(ctx context.Context) {
	s.Results.Initialize(ctx)
	if s.Results.TotalVectors() > 0 {
		s.Ingestion.MarkIngested()
	}
	logger.WithSession(s.ID).WithField("has_logs", s.Ingestion.HasIngestedAnyLogs()).Debug("Session initialized")
}

// Subscribe registers fn for every event of this session.
func (s *Session) Subscribe(fn func(Event)) func() {
	return s.notifier.Subscribe(fn)
}

func (s *Session) Counters() models.DashboardCounters {
	return s.Results.Counters()
}

func (s *Session) Snapshot() Snapshot {
	history, totalVectors := s.Results.view()
	return Snapshot{
		SessionID: s.ID,
		Counters:  models.ComputeCounters(history, totalVectors),
		Ingestion: s.Ingestion.State(),
		Analysis:  s.Analysis.State(),
		History:   history,
	}
}
