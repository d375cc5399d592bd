package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MaxHealthyBacklog is the pending count above which the relay reports itself unhealthy
const MaxHealthyBacklog = 1000

type HealthStatus struct {
	Healthy         bool     `json:"healthy"`
	PendingEvents   int64    `json:"pending_events"`
	BrokerConnected bool     `json:"broker_connected"`
	Errors          []string `json:"errors"`
}

// HealthChecker reports on the outbox backlog and the broker connection
type HealthChecker struct {
	repo   Repository
	broker interface{ Connected() bool }
}

// NewHealthChecker creates a HealthChecker. broker may be nil when relaying to the log.
func NewHealthChecker(repo Repository, broker interface{ Connected() bool }) *HealthChecker {
	return &HealthChecker{repo: repo, broker: broker}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Healthy: true, BrokerConnected: true, Errors: []string{}}

	if h.broker != nil && !h.broker.Connected() {
		status.BrokerConnected = false
		status.Healthy = false
		status.Errors = append(status.Errors, "NATS disconnected")
	}

	pending, err := h.repo.CountPending(ctx)
	if err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending events: %v", err))
		return status
	}
	status.PendingEvents = pending
	if pending > MaxHealthyBacklog {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending))
	}
	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)
	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
