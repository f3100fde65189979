package triage

import (
	"context"
	"sync"

	"github.com/autolog/triage/internal/logger"
	"github.com/autolog/triage/internal/models"
)

// ResultsStore owns the newest-first analysis history and the latest known
// vector count. Counters are always derived from those two values.
type ResultsStore struct {
	api       API
	notifier  *Notifier
	sessionID string

	mu           sync.RWMutex
	history      []models.AnalysisResult
	totalVectors int

	// Bumped by Prepend and SetTotalVectors so a load that overlaps them
	// does not roll their effects back.
	prepends   int
	vectorSets int
}

func NewResultsStore(api API, notifier *Notifier, sessionID string) *ResultsStore {
	if notifier == nil {
		notifier = NewNotifier()
	}
	return &ResultsStore{
		api:       api,
		notifier:  notifier,
		sessionID: sessionID,
	}
}

// Initialize replaces the history with the server's list and primes the
// vector count. Results prepended while the list was in flight stay ahead of
// it, and a vector count set by an ingestion in that window wins over the
// server's. A failed load is logged and published but never returned, so the
// dashboard still comes up empty and usable.
func (s *ResultsStore) Initialize(ctx context.Context) {
	log := logger.WithController(s.sessionID, "results_store")

	s.mu.RLock()
	startPrepends, startVectorSets := s.prepends, s.vectorSets
	s.mu.RUnlock()

	page, err := s.api.ListResults(ctx)
	if err != nil {
		info := models.NewErrorInfo(err, "Failed to load results")
		log.WithField("error", info.Message).Warn("Failed to load results history, starting empty")
		s.notifier.Publish(Event{Type: EventResultsLoadFailed, SessionID: s.sessionID, Error: info})
		return
	}
	if page == nil {
		page = &models.ResultsPage{}
	}

	s.mu.Lock()
	fresh := s.prepends - startPrepends
	if fresh > len(s.history) {
		fresh = len(s.history)
	}
	history := mergeLoaded(s.history[:fresh], page.Results)
	s.history = history
	vectorsPrimed := s.vectorSets == startVectorSets
	if vectorsPrimed {
		s.totalVectors = page.TotalVectors
	}
	totalVectors := s.totalVectors
	s.mu.Unlock()

	log.WithFields(map[string]interface{}{
		"results":        len(history),
		"kept_local":     fresh,
		"total_vectors":  totalVectors,
		"vectors_primed": vectorsPrimed,
	}).Info("Results history loaded")
	s.notifier.Publish(Event{Type: EventResultsLoaded, SessionID: s.sessionID, Count: len(history)})
}

// mergeLoaded puts the locally prepended results ahead of the loaded ones.
// Loaded entries that repeat a local id are dropped, since the service may
// already list a result that finished during the load.
func mergeLoaded(local, loaded []models.AnalysisResult) []models.AnalysisResult {
	history := make([]models.AnalysisResult, 0, len(local)+len(loaded))
	history = append(history, local...)

	seen := make(map[string]struct{}, len(local))
	for _, result := range local {
		seen[result.ID] = struct{}{}
	}
	for _, result := range loaded {
		if _, ok := seen[result.ID]; ok && result.ID != "" {
			continue
		}
		history = append(history, result)
	}
	return history
}

// Prepend puts result at the front of the history. Duplicate ids are kept.
func (s *ResultsStore) Prepend(result models.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]models.AnalysisResult, 0, len(s.history)+1)
	history = append(history, result)
	s.history = append(history, s.history...)
	s.prepends++
}

func (s *ResultsStore) SetTotalVectors(n int) {
	s.mu.Lock()
	s.totalVectors = n
	s.vectorSets++
	s.mu.Unlock()
}

func (s *ResultsStore) TotalVectors() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalVectors
}

func (s *ResultsStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// History returns a copy of the results, newest first.
func (s *ResultsStore) History() []models.AnalysisResult {
	history, _ := s.view()
	return history
}

func (s *ResultsStore) Counters() models.DashboardCounters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.ComputeCounters(s.history, s.totalVectors)
}

// Find returns the first result with the given id.
func (s *ResultsStore) Find(id string) (models.AnalysisResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, result := range s.history {
		if result.ID == id {
			return result, true
		}
	}
	return models.AnalysisResult{}, false
}

// view copies the history and vector count under one read lock.
func (s *ResultsStore) view() ([]models.AnalysisResult, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]models.AnalysisResult, len(s.history))
	copy(history, s.history)
	return history, s.totalVectors
}
