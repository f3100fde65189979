// Package render prints dashboard state for the terminal: counters, result
// cards and ingestion summaries as styled text, or as JSON / YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/autolog/triage/internal/models"
	"github.com/autolog/triage/internal/triage"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table", "text":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (use table, json or yaml)", s)
	}
}

var severityColors = map[models.SeverityLevel]lipgloss.Color{
	models.SeverityP1: lipgloss.Color("196"),
	models.SeverityP2: lipgloss.Color("208"),
	models.SeverityP3: lipgloss.Color("220"),
	models.SeverityP4: lipgloss.Color("39"),
}

var (
	faintColor = lipgloss.Color("245")
	labelStyle = lipgloss.NewStyle().Bold(true)
)

type Renderer struct {
	w      io.Writer
	format Format
	styled bool
	now    func() time.Time
}

// New creates a renderer. Styling is enabled only when w is a terminal.
func New(w io.Writer, format Format) *Renderer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &Renderer{w: w, format: format, styled: styled, now: time.Now}
}

// WithStyle forces styling on or off.
func (r *Renderer) WithStyle(styled bool) *Renderer {
	r.styled = styled
	return r
}

func (r *Renderer) Format() Format {
	return r.format
}

// Value writes v as JSON or YAML. Table output falls back to JSON.
func (r *Renderer) Value(v interface{}) error {
	switch r.format {
	case FormatYAML:
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func (r *Renderer) Dashboard(snap triage.Snapshot) error {
	if r.format != FormatTable {
		return r.Value(snap)
	}
	if err := r.writeCounters(snap.Counters); err != nil {
		return err
	}
	if snap.Ingestion.LastError != nil {
		r.printf("%s %s\n", r.paint("Last upload error:", lipgloss.Color("196")), snap.Ingestion.LastError.Message)
	}
	if snap.Analysis.LastError != nil {
		r.printf("%s %s\n", r.paint("Last analysis error:", lipgloss.Color("196")), snap.Analysis.LastError.Message)
	}
	r.printf("\n")
	return r.writeCards(snap.History)
}

func (r *Renderer) Counters(counters models.DashboardCounters) error {
	if r.format != FormatTable {
		return r.Value(counters)
	}
	return r.writeCounters(counters)
}

// Results prints one row per result, newest first.
func (r *Renderer) Results(history []models.AnalysisResult) error {
	if r.format != FormatTable {
		return r.Value(history)
	}
	if len(history) == 0 {
		r.printf("No analysis results yet.\n")
		return nil
	}

	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEVERITY\tCREATED\tOWNER\tSUMMARY")
	for _, result := range history {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			result.ID,
			result.Analysis.SeverityLevel.Display(),
			r.relativeTime(result.CreatedAt),
			dash(result.Analysis.RecommendedOwner),
			truncate(result.Analysis.Summary, 60),
		)
	}
	return tw.Flush()
}

// Result prints a single result card.
func (r *Renderer) Result(result models.AnalysisResult) error {
	if r.format != FormatTable {
		return r.Value(result)
	}
	r.printf("%s\n", r.card(result))
	return nil
}

func (r *Renderer) Summary(summary models.IngestionSummary) error {
	if r.format != FormatTable {
		return r.Value(summary)
	}
	r.printf("%s logs received, %s embeddings stored, %s vectors total\n",
		humanize.Comma(int64(summary.LogsReceived)),
		humanize.Comma(int64(summary.EmbeddingsStored)),
		humanize.Comma(int64(summary.TotalVectors)),
	)
	return nil
}

func (r *Renderer) Health(url string, status *models.HealthStatus, err error) error {
	if r.format != FormatTable {
		payload := map[string]string{"url": url, "status": "ok"}
		if err != nil {
			payload["status"] = "error"
			payload["error"] = models.ErrorMessage(err, "triage service unreachable")
		} else {
			payload["message"] = status.Message
		}
		return r.Value(payload)
	}
	if err != nil {
		r.printf("%s %s: %s\n", r.paint("✗", lipgloss.Color("196")), url, models.ErrorMessage(err, "triage service unreachable"))
		return nil
	}
	r.printf("%s %s: %s\n", r.paint("✓", lipgloss.Color("42")), url, status.Message)
	return nil
}

func (r *Renderer) writeCounters(counters models.DashboardCounters) error {
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", r.label("Vectors stored"), humanize.Comma(int64(counters.TotalVectors)))
	fmt.Fprintf(tw, "%s\t%s\n", r.label("Analyses run"), humanize.Comma(int64(counters.AnalysesRun)))
	critical := humanize.Comma(int64(counters.CriticalIssues))
	if counters.CriticalIssues > 0 {
		critical = r.paint(critical, severityColors[models.SeverityP1])
	}
	fmt.Fprintf(tw, "%s\t%s\n", r.label("Critical issues"), critical)
	return tw.Flush()
}

func (r *Renderer) writeCards(history []models.AnalysisResult) error {
	if len(history) == 0 {
		r.printf("No analysis results yet.\n")
		return nil
	}
	for _, result := range history {
		r.printf("%s\n", r.card(result))
	}
	return nil
}

// card lays out one result. Unknown severities show as P3.
func (r *Renderer) card(result models.AnalysisResult) string {
	severity := result.Analysis.SeverityLevel.Display()

	header := fmt.Sprintf("%s  %s  %s",
		r.badge(severity),
		result.ID,
		r.faint(r.relativeTime(result.CreatedAt)),
	)

	lines := []string{
		header,
		fmt.Sprintf("%s %s", r.label("Summary:"), dash(result.Analysis.Summary)),
		fmt.Sprintf("%s %s", r.label("Root cause:"), dash(result.Analysis.RootCause)),
		fmt.Sprintf("%s %s", r.label("Owner:"), dash(result.Analysis.RecommendedOwner)),
		fmt.Sprintf("%s %s", r.label("Next steps:"), dash(result.Analysis.NextSteps)),
		r.faint(fmt.Sprintf("%d log lines analyzed", len(result.Logs))),
	}
	if n := len(result.SimilarIncidents); n > 0 {
		lines = append(lines, r.faint(fmt.Sprintf("%d similar incidents", n)))
	}
	body := strings.Join(lines, "\n")

	if !r.styled {
		return body + "\n"
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(severityColors[severity]).
		Padding(0, 1).
		Render(body)
}

func (r *Renderer) badge(severity models.SeverityLevel) string {
	text := severity.Label()
	if !r.styled {
		return "[" + text + "]"
	}
	return lipgloss.NewStyle().
		Foreground(severityColors[severity]).
		Bold(severity.IsCritical()).
		Render(text)
}

func (r *Renderer) relativeTime(ts models.Timestamp) string {
	if ts.Time.IsZero() {
		return dash(ts.Raw)
	}
	return humanize.RelTime(ts.Time, r.now(), "ago", "from now")
}

func (r *Renderer) label(text string) string {
	if !r.styled {
		return text
	}
	return labelStyle.Render(text)
}

func (r *Renderer) faint(text string) string {
	if !r.styled {
		return text
	}
	return lipgloss.NewStyle().Foreground(faintColor).Render(text)
}

func (r *Renderer) paint(text string, color lipgloss.Color) string {
	if !r.styled {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}

func (r *Renderer) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.w, format, args...)
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return dash(s)
	}
	return string(runes[:max-1]) + "…"
}
