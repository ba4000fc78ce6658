package handlers

import (
	"context"
	"net/http"
	"time"
)

const version = "0.1.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass", "warn" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health handles the health check endpoint. Only the message store is
// required; a cache or NLP outage degrades responses but does not fail them.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	// Message store
	if h.store != nil {
		start := time.Now()
		if err := h.store.Ping(ctx); err != nil {
			checks["store"] = Check{Status: "fail", Message: "connection failed"}
			allHealthy = false
		} else {
			checks["store"] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	} else {
		checks["store"] = Check{Status: "fail", Message: "not configured"}
		allHealthy = false
	}

	// Cache
	if h.cache != nil {
		start := time.Now()
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = Check{Status: "warn", Message: "connection failed"}
		} else {
			checks["cache"] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	} else {
		checks["cache"] = Check{Status: "pass", Message: "in-process"}
	}

	// NLP service
	if h.nlp != nil {
		start := time.Now()
		if resp, err := h.nlp.Health(ctx); err != nil {
			checks["nlp"] = Check{Status: "warn", Message: "unreachable"}
		} else {
			checks["nlp"] = Check{Status: "pass", Latency: time.Since(start).String(), Message: resp.Model}
		}
	} else {
		checks["nlp"] = Check{Status: "warn", Message: "not configured"}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	h.JSON(w, statusCode, HealthResponse{
		Status:    status,
		Version:   version,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// Root handles the API info endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:    "ContextStack",
		Version: version,
		Endpoints: []string{
			"POST /api/context",
			"GET /api/messages/{channelId}",
			"POST /api/messages/ingest",
			"POST /api/tasks",
			"GET /api/tasks/{channelId}",
			"PATCH /api/tasks/{id}",
			"POST /api/docs/ingest",
			"GET /api/docs",
			"GET /api/channels",
			"GET /api/stats",
			"GET /health",
			"GET /metrics",
		},
	})
}
