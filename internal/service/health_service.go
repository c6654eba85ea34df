package service

import (
	"context"
	"fmt"
	"time"

	"nuclear/internal/database"
	"nuclear/internal/metrics"
)

// HealthStatus is the body of the health endpoint
type HealthStatus struct {
	Status       string `json:"status"`
	Timestamp    string `json:"timestamp"`
	Environment  string `json:"environment"`
	Database     string `json:"database"`
	ResponseTime string `json:"responseTime,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Healthy reports whether the database answered
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// HealthService probes the database
type HealthService struct {
	db  *database.DB
	env string
}

func NewHealthService(db *database.DB, env string) *HealthService {
	return &HealthService{db: db, env: env}
}

// Check pings the database and reports its round trip. The ping error is
// returned for logging; the status carries a generic message.
func (s *HealthService) Check(ctx context.Context) (HealthStatus, error) {
	start := time.Now()
	err := s.db.PingContext(ctx)
	elapsed := time.Since(start)
	metrics.ObserveDBPing(elapsed)

	status := HealthStatus{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Environment: s.env,
	}
	if err != nil {
		status.Status = "unhealthy"
		status.Database = "disconnected"
		status.Error = "database connection failed"
		return status, err
	}
	status.Status = "healthy"
	status.Database = "connected"
	status.ResponseTime = fmt.Sprintf("%dms", elapsed.Milliseconds())
	return status, nil
}
