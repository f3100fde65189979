package models

import (
	"encoding/json"
	"strings"
	"time"
)

type SeverityLevel string

const (
	SeverityP1 SeverityLevel = "P1"
	SeverityP2 SeverityLevel = "P2"
	SeverityP3 SeverityLevel = "P3"
	SeverityP4 SeverityLevel = "P4"
)

var severityLabels = map[SeverityLevel]string{
	SeverityP1: "P1 - Critical",
	SeverityP2: "P2 - Major",
	SeverityP3: "P3 - Minor",
	SeverityP4: "P4 - Info",
}

// Valid reports whether the level is one of P1..P4.
func (s SeverityLevel) Valid() bool {
	_, ok := severityLabels[s]
	return ok
}

// Display returns the level to show on screen. Unknown values fall back to P3;
// the stored value is left untouched.
func (s SeverityLevel) Display() SeverityLevel {
	if s.Valid() {
		return s
	}
	return SeverityP3
}

func (s SeverityLevel) Label() string {
	return severityLabels[s.Display()]
}

// IsCritical is true for the raw values P1 and P2 only.
func (s SeverityLevel) IsCritical() bool {
	return s == SeverityP1 || s == SeverityP2
}

// AnalysisPayload is the structured triage verdict produced by the remote service.
type AnalysisPayload struct {
	SeverityLevel    SeverityLevel `json:"severity_level" yaml:"severity_level"`
	Summary          string        `json:"summary" yaml:"summary"`
	RootCause        string        `json:"root_cause" yaml:"root_cause"`
	RecommendedOwner string        `json:"recommended_owner" yaml:"recommended_owner"`
	NextSteps        string        `json:"next_steps" yaml:"next_steps"`
}

type AnalysisResult struct {
	ID               string          `json:"id" yaml:"id"`
	CreatedAt        Timestamp       `json:"created_at" yaml:"created_at"`
	Analysis         AnalysisPayload `json:"analysis" yaml:"analysis"`
	Logs             []string        `json:"logs" yaml:"logs"`
	SimilarIncidents []string        `json:"similar_incidents,omitempty" yaml:"similar_incidents,omitempty"`
}

// AnalyzeRequest is the body of POST /analyze_incident. Empty fields are omitted,
// which makes the server fall back to its most recently stored logs.
type AnalyzeRequest struct {
	Logs  []string `json:"logs,omitempty"`
	Query string   `json:"query,omitempty"`
}

// ResultsPage is the response of GET /results.
type ResultsPage struct {
	Results      []AnalysisResult `json:"results"`
	Total        int              `json:"total"`
	TotalVectors int              `json:"total_vectors"`
}

// DashboardCounters are derived from the results history and the latest known
// vector count. They are never stored on their own.
type DashboardCounters struct {
	TotalVectors   int `json:"total_vectors" yaml:"total_vectors"`
	AnalysesRun    int `json:"analyses_run" yaml:"analyses_run"`
	CriticalIssues int `json:"critical_issues" yaml:"critical_issues"`
}

func ComputeCounters(history []AnalysisResult, totalVectors int) DashboardCounters {
	counters := DashboardCounters{
		TotalVectors: totalVectors,
		AnalysesRun:  len(history),
	}
	for _, result := range history {
		if result.Analysis.SeverityLevel.IsCritical() {
			counters.CriticalIssues++
		}
	}
	return counters
}

// Timestamp keeps the server's raw created_at string next to its parsed value.
// The service emits Python isoformat() strings, which usually carry no zone.
type Timestamp struct {
	Time time.Time
	Raw  string
}

var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func ParseTimestamp(raw string) Timestamp {
	ts := Timestamp{Raw: raw}
	value := strings.TrimSpace(raw)
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, value); err == nil {
			ts.Time = t
			break
		}
	}
	return ts
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Raw: t.Format(time.RFC3339Nano)}
}

func (t Timestamp) IsZero() bool {
	return t.Raw == "" && t.Time.IsZero()
}

func (t Timestamp) String() string {
	if t.Raw != "" {
		return t.Raw
	}
	if t.Time.IsZero() {
		return ""
	}
	return t.Time.Format(time.RFC3339Nano)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*t = Timestamp{}
		return nil
	}
	*t = ParseTimestamp(*raw)
	return nil
}

func (t Timestamp) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}
