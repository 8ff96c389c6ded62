package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/frahmantamala/rt-lending/internal/outbox"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus   `json:"status"`
	Message    string         `json:"message,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CheckedAt  time.Time      `json:"checked_at"`
	DurationMs int64          `json:"duration_ms"`
}

// QueueReporter is an outbound sink queue whose counters are reported.
type QueueReporter interface {
	Name() string
	Stats() outbox.Stats
}

type HealthHandler struct {
	db     *sql.DB
	queues []QueueReporter
}

// NewHealthHandler accepts a nil db when the mirror database is disabled.
func NewHealthHandler(db *sql.DB, queues ...QueueReporter) *HealthHandler {
	return &HealthHandler{db: db, queues: queues}
}

// pingHandler → just says service is up
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "OK"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// healthCheckHandler → checks the mirror database and reports sink queues.
// Sink failures only degrade the status; the books are served from memory.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]CheckEntry, len(h.queues)+1)
	overall := HealthHealthy

	if h.db != nil {
		entry := h.checkDatabase(r.Context())
		components["postgres"] = entry
		if entry.Status == HealthUnhealthy {
			overall = HealthUnhealthy
		}
	}

	for _, q := range h.queues {
		stats := q.Stats()
		entry := CheckEntry{
			Status:    HealthHealthy,
			CheckedAt: time.Now(),
			Details: map[string]any{
				"enqueued":  stats.Enqueued,
				"delivered": stats.Delivered,
				"failed":    stats.Failed,
				"dropped":   stats.Dropped,
			},
		}
		if stats.Failed > 0 || stats.Dropped > 0 {
			entry.Status = HealthDegraded
			entry.Message = "some changes were not delivered"
			if overall == HealthHealthy {
				overall = HealthDegraded
			}
		}
		components["sink:"+q.Name()] = entry
	}

	resp := HealthResponse{
		Status:     overall,
		CheckedAt:  time.Now(),
		Components: components,
	}

	statusCode := http.StatusOK
	if overall == HealthUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) CheckEntry {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)

	entry := CheckEntry{
		Status:     HealthHealthy,
		CheckedAt:  time.Now(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Status = HealthUnhealthy
		entry.Message = err.Error()
	}
	return entry
}
