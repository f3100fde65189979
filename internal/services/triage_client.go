package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/autolog/triage/internal/logger"
	"github.com/autolog/triage/internal/metrics"
	"github.com/autolog/triage/internal/models"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Operation names, used for error prefixes, call tracking and metric labels.
const (
	OpIngestText  = "ingest_text"
	OpIngestFile  = "ingest_file"
	OpIngestDemo  = "ingest_demo"
	OpRunAnalysis = "run_analysis"
	OpListResults = "list_results"
	OpGetResult   = "get_result"
	OpHealth      = "health"
)

const (
	DefaultBaseURL     = "http://localhost:8000"
	DefaultTimeout     = 120 * time.Second // 2 minute timeout for LLM calls
	DefaultCallHistory = 100

	maxResponseBytes = 32 << 20
)

type TriageClient struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	maxCalls int
	apiCalls []APICall
	callMu   sync.RWMutex
}

type ClientOptions struct {
	BaseURL     string
	Timeout     time.Duration
	RateLimit   float64 // requests per second, 0 disables limiting
	RateBurst   int
	CallHistory int
	HTTPClient  *http.Client // overrides Timeout when set
}

// APICall is one tracked request to the triage service.
type APICall struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Operation  string        `json:"operation"`
	Method     string        `json:"method"`
	Endpoint   string        `json:"endpoint"`
	Status     int           `json:"status"`
	Duration   time.Duration `json:"duration"`
	DurationMS int64         `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`
}

func NewTriageClient(opts ClientOptions) *TriageClient {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxCalls := opts.CallHistory
	if maxCalls <= 0 {
		maxCalls = DefaultCallHistory
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &TriageClient{
		baseURL:  baseURL,
		client:   httpClient,
		limiter:  limiter,
		maxCalls: maxCalls,
		apiCalls: make([]APICall, 0),
	}
}

func (tc *TriageClient) BaseURL() string {
	return tc.baseURL
}

// IngestText uploads pasted log lines. Blank lines are dropped; nothing is
// sent when none remain.
func (tc *TriageClient) IngestText(ctx context.Context, lines []string) (*models.IngestionSummary, error) {
	logs := models.CleanLogLines(lines)
	if len(logs) == 0 {
		return nil, models.NewValidationError("no log lines to upload")
	}

	body, err := json.Marshal(map[string][]string{"logs": logs})
	if err != nil {
		return nil, &models.TransportError{Op: OpIngestText, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	var summary models.IngestionSummary
	if err := tc.do(ctx, OpIngestText, http.MethodPost, "/upload_logs", bytes.NewReader(body), "application/json", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// IngestFile uploads a file as multipart field "file". The content is passed
// through untouched and streamed, so a large log is never buffered whole.
func (tc *TriageClient) IngestFile(ctx context.Context, file *models.LogFile) (*models.IngestionSummary, error) {
	if file == nil || file.Filename == "" || file.Data == nil {
		return nil, models.NewValidationError("no file selected")
	}

	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	contentType := w.FormDataContentType()
	go func() {
		pw.CloseWithError(writeFormFile(w, file))
	}()
	// Unblocks the writer if the request ends before the body is drained.
	defer pr.Close()

	var summary models.IngestionSummary
	if err := tc.do(ctx, OpIngestFile, http.MethodPost, "/upload_logs", pr, contentType, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func writeFormFile(w *multipart.Writer, file *models.LogFile) error {
	fw, err := w.CreateFormFile("file", file.Filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fw, file.Data); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish form: %w", err)
	}
	return nil
}

// IngestDemo asks the service to load its built-in demo logs.
func (tc *TriageClient) IngestDemo(ctx context.Context) (*models.IngestionSummary, error) {
	var summary models.IngestionSummary
	if err := tc.do(ctx, OpIngestDemo, http.MethodPost, "/upload_demo_logs", nil, "", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// RunAnalysis triggers an analysis. With no logs and no query the service
// analyzes whatever it ingested last.
func (tc *TriageClient) RunAnalysis(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error) {
	req.Logs = models.CleanLogLines(req.Logs)
	req.Query = strings.TrimSpace(req.Query)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &models.TransportError{Op: OpRunAnalysis, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	var result models.AnalysisResult
	if err := tc.do(ctx, OpRunAnalysis, http.MethodPost, "/analyze_incident", bytes.NewReader(body), "application/json", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (tc *TriageClient) ListResults(ctx context.Context) (*models.ResultsPage, error) {
	var page models.ResultsPage
	if err := tc.do(ctx, OpListResults, http.MethodGet, "/results", nil, "", &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []models.AnalysisResult{}
	}
	return &page, nil
}

// GetResult fetches one stored result. The service reports unknown ids with a
// 200 and an "error" body, which is mapped to a 404 TransportError.
func (tc *TriageClient) GetResult(ctx context.Context, id string) (*models.AnalysisResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, models.NewValidationError("result id is required")
	}

	var resp struct {
		models.AnalysisResult
		Error string `json:"error"`
	}
	if err := tc.do(ctx, OpGetResult, http.MethodGet, "/results/"+url.PathEscape(id), nil, "", &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &models.TransportError{Op: OpGetResult, StatusCode: http.StatusNotFound, Detail: resp.Error}
	}
	return &resp.AnalysisResult, nil
}

func (tc *TriageClient) Health(ctx context.Context) (*models.HealthStatus, error) {
	var status models.HealthStatus
	if err := tc.do(ctx, OpHealth, http.MethodGet, "/api/health", nil, "", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// do performs one request and decodes a 2xx JSON body into out. Every failure
// comes back as a *models.TransportError.
func (tc *TriageClient) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out interface{}) error {
	call := tc.createAPICall(op, method, path)
	startTime := time.Now()
	log := logger.WithAPICall(call.ID, op)

	if tc.limiter != nil {
		if err := tc.limiter.Wait(ctx); err != nil {
			return tc.fail(call, startTime, &models.TransportError{Op: op, Timeout: isTimeout(err), Err: err})
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+path, body)
	if err != nil {
		return tc.fail(call, startTime, &models.TransportError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)})
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", call.ID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	log.WithField("endpoint", path).Debug("Sending triage API request")

	resp, err := tc.client.Do(req)
	if err != nil {
		return tc.fail(call, startTime, &models.TransportError{Op: op, Timeout: isTimeout(err), Err: err})
	}
	defer resp.Body.Close()
	call.Status = resp.StatusCode

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return tc.fail(call, startTime, &models.TransportError{Op: op, StatusCode: resp.StatusCode, Timeout: isTimeout(err), Err: fmt.Errorf("failed to read response: %w", err)})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tc.fail(call, startTime, &models.TransportError{Op: op, StatusCode: resp.StatusCode, Detail: extractDetail(respBody)})
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return tc.fail(call, startTime, &models.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)})
		}
	}

	call.Duration = time.Since(startTime)
	call.DurationMS = call.Duration.Milliseconds()
	tc.addAPICall(call)
	metrics.APIRequestsTotal.WithLabelValues(op, metrics.OutcomeSuccess).Inc()
	metrics.APIRequestDuration.WithLabelValues(op).Observe(call.Duration.Seconds())
	log.WithFields(map[string]interface{}{
		"status":      resp.StatusCode,
		"duration_ms": call.DurationMS,
	}).Debug("Triage API request completed")
	return nil
}

func (tc *TriageClient) fail(call APICall, startTime time.Time, terr *models.TransportError) error {
	call.Duration = time.Since(startTime)
	call.DurationMS = call.Duration.Milliseconds()
	call.Error = terr.Error()
	if terr.Detail != "" {
		call.Error = fmt.Sprintf("%s: %s", terr.Error(), terr.Detail)
	}
	tc.addAPICall(call)

	outcome := metrics.OutcomeError
	if terr.Timeout {
		outcome = metrics.OutcomeTimeout
	}
	metrics.APIRequestsTotal.WithLabelValues(terr.Op, outcome).Inc()
	metrics.APIRequestDuration.WithLabelValues(terr.Op).Observe(call.Duration.Seconds())

	logger.WithAPICall(call.ID, terr.Op).WithFields(map[string]interface{}{
		"status":      terr.StatusCode,
		"detail":      terr.Detail,
		"timeout":     terr.Timeout,
		"duration_ms": call.DurationMS,
	}).Warn("Triage API request failed")
	return terr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// extractDetail pulls a human-readable message out of an error body. FastAPI
// sends {"detail": "..."} or, for request validation, a list of {msg, loc}.
func extractDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		var items []struct {
			Msg string        `json:"msg"`
			Loc []interface{} `json:"loc"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			var msgs []string
			for _, item := range items {
				if item.Msg == "" {
					continue
				}
				if len(item.Loc) > 0 {
					parts := make([]string, 0, len(item.Loc))
					for _, p := range item.Loc {
						parts = append(parts, fmt.Sprint(p))
					}
					msgs = append(msgs, fmt.Sprintf("%s: %s", strings.Join(parts, "."), item.Msg))
				} else {
					msgs = append(msgs, item.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return strings.TrimSpace(payload.Error)
}

// APICalls returns all tracked triage API calls, oldest first
func (tc *TriageClient) APICalls() []APICall {
	tc.callMu.RLock()
	defer tc.callMu.RUnlock()

	calls := make([]APICall, len(tc.apiCalls))
	copy(calls, tc.apiCalls)
	return calls
}

// ClearAPICalls clears the API call history
func (tc *TriageClient) ClearAPICalls() {
	tc.callMu.Lock()
	defer tc.callMu.Unlock()
	tc.apiCalls = make([]APICall, 0)
}

func (tc *TriageClient) createAPICall(op, method, path string) APICall {
	return APICall{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Operation: op,
		Method:    method,
		Endpoint:  path,
	}
}

// addAPICall keeps only the last maxCalls entries
func (tc *TriageClient) addAPICall(call APICall) {
	tc.callMu.Lock()
	defer tc.callMu.Unlock()

	if len(tc.apiCalls) >= tc.maxCalls {
		tc.apiCalls = tc.apiCalls[len(tc.apiCalls)-tc.maxCalls+1:]
	}
	tc.apiCalls = append(tc.apiCalls, call)
}
