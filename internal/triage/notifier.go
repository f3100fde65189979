package triage

import (
	"sync"
	"time"

	"github.com/autolog/triage/internal/models"
)

type EventType string

const (
	EventIngestionStarted   EventType = "ingestion_started"
	EventIngestionSucceeded EventType = "ingestion_succeeded"
	EventIngestionFailed    EventType = "ingestion_failed"
	EventAnalysisStarted    EventType = "analysis_started"
	EventAnalysisSucceeded  EventType = "analysis_succeeded"
	EventAnalysisFailed     EventType = "analysis_failed"
	EventResultsLoaded      EventType = "results_loaded"
	EventResultsLoadFailed  EventType = "results_load_failed"
)

// Event describes one state change inside a session. Only the fields that
// matter for the event type are set.
type Event struct {
	Type      EventType                `json:"type"`
	SessionID string                   `json:"session_id"`
	At        time.Time                `json:"at"`
	Source    models.IngestionSource   `json:"source,omitempty"`
	Summary   *models.IngestionSummary `json:"summary,omitempty"`
	Result    *models.AnalysisResult   `json:"result,omitempty"`
	Error     *models.ErrorInfo        `json:"error,omitempty"`
	Count     int                      `json:"count,omitempty"`
}

// Notifier fans session events out to subscribers. Handlers run synchronously
// on the publishing goroutine and must not block.
type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (n *Notifier) Subscribe(fn func(Event)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

func (n *Notifier) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	n.mu.RLock()
	handlers := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		handlers = append(handlers, fn)
	}
	n.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
