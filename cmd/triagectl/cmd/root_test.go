package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type backend struct {
	mu           sync.Mutex
	totalVectors int
	lines        [][]string
	files        []string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/health":
		json.NewEncoder(w).Encode(map[string]string{"message": "Incident Triage API is running"})
	case "/upload_logs":
		if _, header, err := r.FormFile("file"); err == nil {
			b.files = append(b.files, header.Filename)
			b.totalVectors++
			json.NewEncoder(w).Encode(map[string]int{"logs_received": 1, "embeddings_stored": 1, "total_vectors": b.totalVectors})
			return
		}
		var body struct {
			Logs []string `json:"logs"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		b.lines = append(b.lines, body.Logs)
		b.totalVectors += len(body.Logs)
		json.NewEncoder(w).Encode(map[string]int{"logs_received": len(body.Logs), "embeddings_stored": len(body.Logs), "total_vectors": b.totalVectors})
	case "/upload_demo_logs":
		b.totalVectors += 5
		json.NewEncoder(w).Encode(map[string]int{"logs_received": 5, "embeddings_stored": 5, "total_vectors": b.totalVectors})
	case "/analyze_incident":
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         "inc-1",
			"created_at": "2024-05-01T10:00:00",
			"analysis":   map[string]string{"severity_level": "P1", "summary": "Checkout down", "root_cause": "payment gateway timeout", "recommended_owner": "Payments", "next_steps": "Fail over"},
			"logs":       []string{"ERROR gateway"},
		})
	case "/results":
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"id": "r-2", "analysis": map[string]string{"severity_level": "P2", "summary": "second"}},
				{"id": "r-1", "analysis": map[string]string{"severity_level": "P4", "summary": "first"}},
			},
			"total":         2,
			"total_vectors": b.totalVectors,
		})
	default:
		http.NotFound(w, r)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	chdir(t, t.TempDir())
	resetFlags()
	t.Cleanup(resetFlags)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags restores flag variables; cobra keeps values between executions.
func resetFlags() {
	verbose = false
	output = "table"
	apiURL = ""
	apiTimeout = 0
	analyzeQuery = ""
	analyzeLogs = nil
	resultsLimit = 0
}

func startBackend(t *testing.T, b *backend) string {
	t.Helper()
	server := httptest.NewServer(b)
	t.Cleanup(server.Close)
	return server.URL
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "triage dev") {
		t.Errorf("Unexpected version output %q", out)
	}
}

func TestIngestTextFromArgsAndStdin(t *testing.T) {
	b := &backend{}
	url := startBackend(t, b)

	out, err := execute(t, "", "ingest", "text", "--url", url, "ERROR: timeout", "  ", "WARNING: spike")
	if err != nil {
		t.Fatalf("ingest text: %v", err)
	}
	if !strings.Contains(out, "2 logs received") {
		t.Errorf("Unexpected output %q", out)
	}

	_, err = execute(t, "ERROR a\n\nERROR b\n", "ingest", "text", "--url", url)
	if err != nil {
		t.Fatalf("ingest text from stdin: %v", err)
	}

	if len(b.lines) != 2 || len(b.lines[0]) != 2 || len(b.lines[1]) != 2 {
		t.Errorf("Unexpected uploads %q", b.lines)
	}
}

func TestIngestTextEmpty(t *testing.T) {
	b := &backend{}
	url := startBackend(t, b)

	_, err := execute(t, "\n  \n", "ingest", "text", "--url", url)
	if err == nil || !strings.Contains(err.Error(), "no log lines") {
		t.Errorf("Expected empty-input error, got %v", err)
	}
	if len(b.lines) != 0 {
		t.Errorf("Expected no upload")
	}
}

func TestIngestFile(t *testing.T) {
	b := &backend{}
	url := startBackend(t, b)

	path := filepath.Join(t.TempDir(), "errors.log")
	if err := os.WriteFile(path, []byte("ERROR boom\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "", "ingest", "file", "--url", url, path); err != nil {
		t.Fatalf("ingest file: %v", err)
	}
	if len(b.files) != 1 || b.files[0] != "errors.log" {
		t.Errorf("Unexpected uploaded files %q", b.files)
	}

	if _, err := execute(t, "", "ingest", "file", "--url", url, filepath.Join(t.TempDir(), "missing.log")); err == nil {
		t.Errorf("Expected error for a missing file")
	}
}

func TestAnalyzeRequiresIngestedLogs(t *testing.T) {
	url := startBackend(t, &backend{})

	_, err := execute(t, "", "analyze", "--url", url)
	if err == nil || !strings.Contains(err.Error(), "no logs ingested") {
		t.Errorf("Expected no-logs error, got %v", err)
	}
}

func TestDemoThenAnalyze(t *testing.T) {
	url := startBackend(t, &backend{})

	if _, err := execute(t, "", "ingest", "demo", "--url", url); err != nil {
		t.Fatalf("ingest demo: %v", err)
	}

	// A new invocation sees the vectors stored by the previous one
	out, err := execute(t, "", "analyze", "--url", url, "--query", "why")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "[P1 - Critical]") || !strings.Contains(out, "payment gateway timeout") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestResultsJSON(t *testing.T) {
	url := startBackend(t, &backend{})

	out, err := execute(t, "", "results", "--url", url, "-o", "json", "-n", "1")
	if err != nil {
		t.Fatalf("results: %v", err)
	}

	var results []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("Invalid JSON %q: %v", out, err)
	}
	if len(results) != 1 || results[0]["id"] != "r-2" {
		t.Errorf("Expected newest result only, got %v", results)
	}
}

func TestDashboard(t *testing.T) {
	url := startBackend(t, &backend{totalVectors: 7})

	out, err := execute(t, "", "dashboard", "--url", url)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	for _, want := range []string{"Vectors stored", "7", "Analyses run", "[P2 - Major]", "[P4 - Info]"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestDashboardUnreachableServiceRendersEmpty(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	out, err := execute(t, "", "dashboard", "--url", url, "--timeout", "2s")
	if err != nil {
		t.Fatalf("dashboard should not fail: %v", err)
	}
	if !strings.Contains(out, "No analysis results yet") {
		t.Errorf("Expected empty dashboard, got:\n%s", out)
	}
}

func TestHealthCommand(t *testing.T) {
	url := startBackend(t, &backend{})
	out, err := execute(t, "", "health", "--url", url)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !strings.Contains(out, "Incident Triage API is running") {
		t.Errorf("Unexpected output %q", out)
	}

	server := httptest.NewServer(http.NotFoundHandler())
	_, err = execute(t, "", "health", "--url", server.URL)
	server.Close()
	if !errors.Is(err, errUnhealthy) {
		t.Errorf("Expected errUnhealthy, got %v", err)
	}
}

func TestInvalidFlags(t *testing.T) {
	if _, err := execute(t, "", "dashboard", "-o", "xml"); err == nil {
		t.Errorf("Expected error for invalid output format")
	}
	if _, err := execute(t, "", "dashboard", "--url", "ftp://nowhere"); err == nil {
		t.Errorf("Expected error for invalid URL")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir for Go < 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("Chdir back: %v", err)
		}
	})
}
