package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/autolog/triage/internal/logger"
	"github.com/autolog/triage/internal/models"
	"github.com/autolog/triage/internal/services"
	"github.com/autolog/triage/internal/triage"
	"github.com/gin-gonic/gin"
)

const (
	healthCheckTimeout = 5 * time.Second
	eventBuffer        = 32
	heartbeatInterval  = 15 * time.Second
)

type DashboardController struct {
	session   *triage.Session
	client    *services.TriageClient
	version   string
	heartbeat time.Duration
}

func NewDashboardController(session *triage.Session, client *services.TriageClient, version string) *DashboardController {
	return &DashboardController{
		session:   session,
		client:    client,
		version:   version,
		heartbeat: heartbeatInterval,
	}
}

type ingestTextRequest struct {
	Text string `json:"text"`
}

type analyzeRequest struct {
	Logs  []string `json:"logs"`
	Query string   `json:"query"`
}

// Health reports this server's status and whether the triage service answers.
func (dc *DashboardController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	serviceStatus := "ok"
	var serviceMessage, serviceError string
	status, err := dc.client.Health(ctx)
	if err != nil {
		serviceStatus = "error"
		serviceError = models.ErrorMessage(err, "triage service unreachable")
	} else {
		serviceMessage = status.Message
	}

	overallStatus := "ok"
	statusCode := http.StatusOK
	if serviceStatus != "ok" {
		overallStatus = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":     overallStatus,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"version":    dc.version,
		"session_id": dc.session.ID,
		"services": gin.H{
			"triage": gin.H{
				"status":  serviceStatus,
				"url":     dc.client.BaseURL(),
				"message": serviceMessage,
				"error":   serviceError,
			},
		},
	})
}

// GetDashboard returns counters, controller state and history in one view.
func (dc *DashboardController) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, dc.session.Snapshot())
}

func (dc *DashboardController) IngestText(c *gin.Context) {
	var req ingestTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	summary, err := dc.session.Ingestion.SubmitText(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err, "Upload failed")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// IngestFile forwards an uploaded file to the triage service untouched.
func (dc *DashboardController) IngestFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file selected"})
		return
	}

	file, err := header.Open()
	if err != nil {
		logger.WithError(err, "dashboard_controller").Error("Failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	summary, err := dc.session.Ingestion.SubmitFile(c.Request.Context(), &models.LogFile{
		Filename: header.Filename,
		Data:     file,
		Size:     header.Size,
	})
	if err != nil {
		respondError(c, err, "File upload failed")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (dc *DashboardController) IngestDemo(c *gin.Context) {
	summary, err := dc.session.Ingestion.SubmitDemo(c.Request.Context())
	if err != nil {
		respondError(c, err, "Demo load failed")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Analyze runs an analysis. The body is optional.
func (dc *DashboardController) Analyze(c *gin.Context) {
	var req analyzeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	result, err := dc.session.Analysis.Analyze(c.Request.Context(), req.Logs, req.Query)
	if err != nil {
		respondError(c, err, "Analysis failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (dc *DashboardController) GetResults(c *gin.Context) {
	snap := dc.session.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"results":       snap.History,
		"total":         len(snap.History),
		"total_vectors": snap.Counters.TotalVectors,
	})
}

// GetResult looks in the session history first, then asks the service.
func (dc *DashboardController) GetResult(c *gin.Context) {
	id := c.Param("id")
	if result, ok := dc.session.Results.Find(id); ok {
		c.JSON(http.StatusOK, result)
		return
	}

	result, err := dc.client.GetResult(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Result not found")
		return
	}
	c.JSON(http.StatusOK, result)
}

// StreamEvents sends session events as server-sent events, starting with a
// snapshot of the current state.
func (dc *DashboardController) StreamEvents(c *gin.Context) {
	events := make(chan triage.Event, eventBuffer)
	unsubscribe := dc.session.Subscribe(func(ev triage.Event) {
		select {
		case events <- ev:
		default:
			logger.Warn("Dropping session event for slow subscriber", map[string]interface{}{
				"event": ev.Type,
			})
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("snapshot", dc.session.Snapshot())
	c.Writer.Flush()

	heartbeat := time.NewTicker(dc.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev := <-events:
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"at": time.Now().UTC().Format(time.RFC3339)})
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// GetAPICalls returns the tracked triage service calls
func (dc *DashboardController) GetAPICalls(c *gin.Context) {
	calls := dc.client.APICalls()
	c.JSON(http.StatusOK, gin.H{
		"api_calls": calls,
		"total":     len(calls),
	})
}

// ClearAPICalls clears the tracked triage service calls
func (dc *DashboardController) ClearAPICalls(c *gin.Context) {
	dc.client.ClearAPICalls()
	c.JSON(http.StatusOK, gin.H{"message": "API call history cleared"})
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error, fallback string) {
	status := http.StatusBadGateway
	switch models.KindOf(err) {
	case models.ErrorKindValidation:
		status = http.StatusBadRequest
	case models.ErrorKindState:
		status = http.StatusConflict
	default:
		var te *models.TransportError
		if errors.As(err, &te) {
			switch {
			case te.Timeout:
				status = http.StatusGatewayTimeout
			case te.StatusCode == http.StatusNotFound:
				status = http.StatusNotFound
			}
		}
	}
	c.JSON(status, gin.H{"error": models.ErrorMessage(err, fallback)})
}
