// Package health provides health check functionality for API components.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is operational but with issues.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Pinger is an interface for components that can be pinged.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type component struct {
	name     string
	pinger   Pinger
	critical bool
}

// Checker performs health checks for registered components. A failing
// critical component makes the service unhealthy; any other failure degrades it.
type Checker struct {
	components []component
	startTime  time.Time
	version    string
	timeout    time.Duration
	mu         sync.RWMutex
}

// NewChecker creates a new health checker with store as its critical component.
func NewChecker(store Pinger, version string) *Checker {
	return &Checker{
		components: []component{{name: "store", pinger: store, critical: true}},
		startTime:  time.Now(),
		version:    version,
		timeout:    5 * time.Second,
	}
}

// AddComponent registers a non-critical component.
func (c *Checker) AddComponent(name string, pinger Pinger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, component{name: name, pinger: pinger})
}

// SetTimeout sets the timeout for health checks.
func (c *Checker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Check performs all health checks and returns the aggregated response.
func (c *Checker) Check(ctx context.Context) *Response {
	c.mu.RLock()
	timeout := c.timeout
	components := append([]component(nil), c.components...)
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statuses := make(map[string]ComponentStatus, len(components))
	overallStatus := StatusHealthy
	for _, comp := range components {
		status := checkComponent(checkCtx, comp)
		statuses[comp.name] = status

		switch status.Status {
		case StatusUnhealthy:
			overallStatus = StatusUnhealthy
		case StatusDegraded:
			if overallStatus == StatusHealthy {
				overallStatus = StatusDegraded
			}
		}
	}

	return &Response{
		Status:     overallStatus,
		Components: statuses,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

func checkComponent(ctx context.Context, comp component) ComponentStatus {
	failed := StatusDegraded
	if comp.critical {
		failed = StatusUnhealthy
	}

	if comp.pinger == nil {
		return ComponentStatus{
			Status:  failed,
			Message: comp.name + " not configured",
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- comp.pinger.Ping(ctx) }()

	select {
	case err := <-errCh:
		if err != nil {
			return ComponentStatus{
				Status:  failed,
				Message: comp.name + " check failed: " + err.Error(),
			}
		}
	case <-ctx.Done():
		return ComponentStatus{
			Status:  failed,
			Message: comp.name + " check timed out",
		}
	}

	return ComponentStatus{
		Status:  StatusHealthy,
		Message: "ok",
	}
}

// Handler returns an HTTP handler for health checks.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")

		if response.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(response)
	}
}
