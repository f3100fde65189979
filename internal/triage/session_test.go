package triage

import (
	"context"
	"testing"

	"github.com/autolog/triage/internal/models"
)

func TestDemoThenAnalyzeScenario(t *testing.T) {
	api := newFakeAPI()
	api.runAnalysis = func(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error) {
		return newResult("incident-1", models.SeverityP1), nil
	}
	session := NewSession(api)
	session.Initialize(context.Background())

	if session.Ingestion.HasIngestedAnyLogs() {
		t.Fatalf("Expected gate closed on an empty service")
	}

	summary, err := session.Ingestion.SubmitDemo(context.Background())
	if err != nil {
		t.Fatalf("SubmitDemo: %v", err)
	}
	if summary.LogsReceived != 5 || summary.EmbeddingsStored != 5 || summary.TotalVectors != 5 {
		t.Errorf("Unexpected summary %+v", summary)
	}
	if !session.Ingestion.HasIngestedAnyLogs() {
		t.Errorf("Expected gate open after demo load")
	}
	if session.Counters().TotalVectors != 5 {
		t.Errorf("Expected total vectors 5, got %d", session.Counters().TotalVectors)
	}

	if _, err := session.Analysis.Analyze(context.Background(), nil, ""); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	counters := session.Counters()
	if counters.AnalysesRun != 1 || counters.CriticalIssues != 1 {
		t.Errorf("Unexpected counters %+v", counters)
	}
	if history := session.Results.History(); history[0].Analysis.SeverityLevel != models.SeverityP1 {
		t.Errorf("Expected P1 first, got %s", history[0].Analysis.SeverityLevel)
	}
}

func TestStartupFailureStillUsable(t *testing.T) {
	api := newFakeAPI()
	api.listResults = func() (*models.ResultsPage, error) {
		return nil, &models.TransportError{Op: "list_results", Timeout: true}
	}
	session := NewSession(api)
	session.Initialize(context.Background())

	snap := session.Snapshot()
	if len(snap.History) != 0 {
		t.Errorf("Expected empty history, got %d", len(snap.History))
	}
	if snap.Ingestion.LastError != nil || snap.Analysis.LastError != nil {
		t.Errorf("Startup failure must not surface as a controller error")
	}

	if _, err := session.Ingestion.SubmitText(context.Background(), "ERROR disk full"); err != nil {
		t.Fatalf("SubmitText: %v", err)
	}
	if _, err := session.Analysis.Analyze(context.Background(), nil, ""); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if session.Counters().AnalysesRun != 1 {
		t.Errorf("Expected one analysis, got %d", session.Counters().AnalysesRun)
	}
}

func TestInitializeOpensGateForExistingVectors(t *testing.T) {
	api := newFakeAPI()
	api.listResults = func() (*models.ResultsPage, error) {
		return &models.ResultsPage{Results: []models.AnalysisResult{}, TotalVectors: 42}, nil
	}
	session := NewSession(api)
	session.Initialize(context.Background())

	if !session.Ingestion.HasIngestedAnyLogs() {
		t.Errorf("Expected gate open when the service already holds vectors")
	}
	if _, err := session.Analysis.Analyze(context.Background(), nil, ""); err != nil {
		t.Errorf("Analyze: %v", err)
	}
}

func TestSnapshotIsConsistent(t *testing.T) {
	api := newFakeAPI()
	api.listResults = func() (*models.ResultsPage, error) {
		return &models.ResultsPage{
			Results:      []models.AnalysisResult{*newResult("a", "P1"), *newResult("b", "BOGUS"), *newResult("c", "P2")},
			TotalVectors: 30,
		}, nil
	}
	session := NewSession(api)
	session.Initialize(context.Background())

	snap := session.Snapshot()
	if snap.SessionID != session.ID {
		t.Errorf("Snapshot carries the wrong session id")
	}
	if snap.Counters.AnalysesRun != len(snap.History) {
		t.Errorf("Counters disagree with history: %+v vs %d", snap.Counters, len(snap.History))
	}
	if snap.Counters.CriticalIssues != 2 || snap.Counters.TotalVectors != 30 {
		t.Errorf("Unexpected counters %+v", snap.Counters)
	}
	if snap.History[1].Analysis.SeverityLevel != "BOGUS" {
		t.Errorf("Unknown severity must be stored verbatim")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	a := NewSession(newFakeAPI())
	b := NewSession(newFakeAPI())

	a.Ingestion.SubmitDemo(context.Background())

	if a.ID == b.ID {
		t.Errorf("Sessions share an id")
	}
	if b.Ingestion.HasIngestedAnyLogs() || b.Counters().TotalVectors != 0 {
		t.Errorf("State leaked between sessions")
	}
}

func TestSessionSubscribe(t *testing.T) {
	session := NewSession(newFakeAPI())
	var got []EventType
	unsubscribe := session.Subscribe(func(ev Event) {
		if ev.SessionID != session.ID {
			t.Errorf("Event from another session: %s", ev.SessionID)
		}
		got = append(got, ev.Type)
	})

	session.Initialize(context.Background())
	unsubscribe()
	unsubscribe()
	session.Ingestion.SubmitDemo(context.Background())

	if len(got) != 1 || got[0] != EventResultsLoaded {
		t.Errorf("Expected only the load event, got %v", got)
	}
	if session.notifier.Len() != 0 {
		t.Errorf("Expected no subscribers left")
	}
}

func TestInitializeKeepsWorkDoneDuringLoad(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := newFakeAPI()
	api.listResults = func() (*models.ResultsPage, error) {
		close(started)
		<-release
		return &models.ResultsPage{Results: []models.AnalysisResult{}, TotalVectors: 0}, nil
	}
	api.runAnalysis = func(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error) {
		return newResult("incident-1", models.SeverityP1), nil
	}
	session := NewSession(api)

	done := make(chan struct{})
	go func() {
		session.Initialize(context.Background())
		close(done)
	}()
	<-started

	if _, err := session.Ingestion.SubmitDemo(context.Background()); err != nil {
		t.Fatalf("SubmitDemo: %v", err)
	}
	if _, err := session.Analysis.Analyze(context.Background(), nil, ""); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	before := session.Counters()

	close(release)
	<-done

	after := session.Counters()
	if after != before {
		t.Errorf("Load rolled back session work: before %+v, after %+v", before, after)
	}
	if after.TotalVectors != 5 || after.AnalysesRun != 1 || after.CriticalIssues != 1 {
		t.Errorf("Unexpected counters %+v", after)
	}
	if !session.Ingestion.HasIngestedAnyLogs() {
		t.Errorf("Expected gate to stay open")
	}
}
