package api

import (
	"context"
	"net/http"
	"time"

	"github.com/snarg/mallok/internal/intake"
	"github.com/snarg/mallok/internal/pipeline"
)

// Pinger checks a dependency's reachability.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionChecker reports broker connectivity.
type ConnectionChecker interface {
	IsConnected() bool
}

// WatcherStatus reports the intake watcher state.
type WatcherStatus interface {
	Status() intake.Status
}

// QueueReporter reports queue depth and the engine label.
type QueueReporter interface {
	Engine() string
	Stats() pipeline.QueueStats
}

type HealthResponse struct {
	Status        string              `json:"status"`
	Version       string              `json:"version"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	Engine        string              `json:"engine"`
	APIs          map[string]bool     `json:"apis"`
	Checks        map[string]string   `json:"checks"`
	Queue         pipeline.QueueStats `json:"queue"`
}

// HealthOptions wires the dependencies /health reports on. Nil checkers are
// reported as not_configured.
type HealthOptions struct {
	DB            Pinger
	MQTT          ConnectionChecker
	Watcher       WatcherStatus
	Queue         QueueReporter
	STTConfigured bool
	LLMConfigured bool
	Version       string
	StartTime     time.Time
}

type HealthHandler struct {
	opts HealthOptions
}

func NewHealthHandler(opts HealthOptions) *HealthHandler {
	return &HealthHandler{opts: opts}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	// Database check
	if h.opts.DB == nil {
		checks["database"] = "not_configured"
	} else if err := h.opts.DB.HealthCheck(r.Context()); err != nil {
		checks["database"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	// MQTT check
	if h.opts.MQTT != nil {
		if h.opts.MQTT.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	if h.opts.Watcher != nil {
		checks["file_watcher"] = h.opts.Watcher.Status().Status
	} else {
		checks["file_watcher"] = "not_configured"
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.opts.Version,
		UptimeSeconds: int64(time.Since(h.opts.StartTime).Seconds()),
		APIs: map[string]bool{
			"stt": h.opts.STTConfigured,
			"llm": h.opts.LLMConfigured,
		},
		Checks: checks,
	}
	if h.opts.Queue != nil {
		resp.Engine = h.opts.Queue.Engine()
		resp.Queue = h.opts.Queue.Stats()
	}

	WriteJSON(w, httpStatus, resp)
}
