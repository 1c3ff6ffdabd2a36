package database

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthStatus represents the health of the database connection
type HealthStatus struct {
	Status       string        `json:"status"` // "healthy", "degraded", "unhealthy"
	ResponseTime time.Duration `json:"response_time"`
	OpenConns    int           `json:"open_connections"`
	InUseConns   int           `json:"in_use_connections"`
	IdleConns    int           `json:"idle_connections"`
	LastChecked  time.Time     `json:"last_checked"`
	Error        string        `json:"error,omitempty"`
}

// HealthChecker performs periodic database health checks
type HealthChecker struct {
	manager  *Manager
	interval time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	latest  *HealthStatus
	started bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(manager *Manager, interval time.Duration, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		manager:  manager,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Check performs an immediate health check
func (h *HealthChecker) Check(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{
		LastChecked: start,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := h.manager.DB().PingContext(checkCtx)
	status.ResponseTime = time.Since(start)

	stats := h.manager.Stats()
	status.OpenConns = stats.OpenConnections
	status.InUseConns = stats.InUse
	status.IdleConns = stats.Idle

	switch {
	case err != nil:
		status.Status = "unhealthy"
		status.Error = err.Error()
	case status.ResponseTime > 1*time.Second:
		status.Status = "degraded"
	default:
		status.Status = "healthy"
	}

	h.mu.Lock()
	h.latest = status
	h.mu.Unlock()

	return status
}

// Latest returns the most recent health status without performing a check
func (h *HealthChecker) Latest() *HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// IsHealthy reports whether the most recent check found the database reachable.
// A connection that has never been checked counts as healthy; the first
// background check will correct it.
func (h *HealthChecker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return true
	}
	return h.latest.Status != "unhealthy"
}

// StartMonitoring starts background health checks
func (h *HealthChecker) StartMonitoring() {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	go func() {
		defer close(h.doneCh)

		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		// Initial check so IsHealthy has data immediately
		h.Check(context.Background())

		for {
			select {
			case <-ticker.C:
				status := h.Check(context.Background())
				if status.Status != "healthy" {
					h.logger.Warn("Database health check",
						zap.String("status", status.Status),
						zap.Duration("response_time", status.ResponseTime),
						zap.String("error", status.Error),
					)
				}
			case <-h.stopCh:
				return
			}
		}
	}()

	h.logger.Info("Database health monitoring started",
		zap.Duration("interval", h.interval),
	)
}

// Stop stops background monitoring
func (h *HealthChecker) Stop() {
	h.mu.RLock()
	started := h.started
	h.mu.RUnlock()
	if !started {
		return
	}

	select {
	case <-h.stopCh:
		// already stopped
	default:
		close(h.stopCh)
		<-h.doneCh
	}
}
