package common

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime,omitempty"`
	Checks    map[string]CheckStatus `json:"checks,omitempty"`
}

// CheckStatus represents the status of a single health check
type CheckStatus struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

var startTime = time.Now()

// HealthCheck returns a basic liveness handler.
func HealthCheck(serviceName, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "healthy",
			Service:   serviceName,
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).String(),
		})
	}
}

// ReadinessProbe returns a readiness handler that runs the given dependency
// checks in parallel and reports 503 when any fails.
func ReadinessProbe(serviceName, version string, checks map[string]func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		type checkResult struct {
			name     string
			err      error
			duration time.Duration
		}

		results := make(chan checkResult, len(checks))
		var wg sync.WaitGroup
		for name, check := range checks {
			wg.Add(1)
			go func(n string, fn func() error) {
				defer wg.Done()
				start := time.Now()
				results <- checkResult{name: n, err: fn(), duration: time.Since(start)}
			}(name, check)
		}
		go func() {
			wg.Wait()
			close(results)
		}()

		status := "ready"
		statusCode := http.StatusOK
		checkStatuses := make(map[string]CheckStatus, len(checks))
		for result := range results {
			if result.err != nil {
				checkStatuses[result.name] = CheckStatus{
					Status:   "unhealthy",
					Message:  result.err.Error(),
					Duration: result.duration.String(),
				}
				status = "not ready"
				statusCode = http.StatusServiceUnavailable
			} else {
				checkStatuses[result.name] = CheckStatus{
					Status:   "healthy",
					Duration: result.duration.String(),
				}
			}
		}

		c.JSON(statusCode, HealthResponse{
			Status:    status,
			Service:   serviceName,
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).String(),
			Checks:    checkStatuses,
		})
	}
}
