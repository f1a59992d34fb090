package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// healthStatus is the /health response body.
type healthStatus struct {
	Status             string    `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp          time.Time `json:"timestamp"`
	Uptime             string    `json:"uptime"`
	TransportOnline    bool      `json:"transport_online"`
	LastSuccessfulRead string    `json:"last_successful_read"`
	ErrorCount         int       `json:"error_count"`
	SuccessCount       int       `json:"success_count"`
	Version            string    `json:"version,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.buildHealthStatus()

	w.Header().Set("Content-Type", "application/json")

	statusCode := http.StatusOK
	if status.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(status); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode health status: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) buildHealthStatus() healthStatus {
	now := time.Now()
	uptime := now.Sub(s.startTime)

	online := s.health.IsOnline()
	lastSuccess := s.health.GetLastSuccessTime()
	errorCount := s.health.GetErrorCount()
	successCount := s.health.GetSuccessCount()

	lastReadStr := "never"
	if !lastSuccess.IsZero() {
		lastReadStr = formatAgo(now.Sub(lastSuccess))
	}

	status := "healthy"
	if !online {
		status = "unhealthy"
	} else if errorCount > 0 {
		total := errorCount + successCount
		if total > 0 {
			errorRate := float64(errorCount) / float64(total) * 100.0
			switch {
			case errorRate > 50.0:
				status = "unhealthy"
			case errorRate > 20.0:
				status = "degraded"
			}
		}
	}

	return healthStatus{
		Status:             status,
		Timestamp:          now,
		Uptime:             formatDuration(uptime),
		TransportOnline:    online,
		LastSuccessfulRead: lastReadStr,
		ErrorCount:         errorCount,
		SuccessCount:       successCount,
		Version:            s.version,
	}
}

func formatAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours %d minutes", int(d.Hours()), int(d.Minutes())%60)
	default:
		days := int(d.Hours()) / 24
		hours := int(d.Hours()) % 24
		return fmt.Sprintf("%d days %d hours", days, hours)
	}
}
