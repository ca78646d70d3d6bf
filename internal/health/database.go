// Package health probes the dependencies the service needs to answer requests.
package health

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const defaultTimeout = 2 * time.Second

// DatabaseStatus is the outcome of one database probe.
type DatabaseStatus struct {
	Status  string        `json:"status"`
	Latency time.Duration `json:"latency_ns"`
	Error   string        `json:"error,omitempty"`
}

func (s DatabaseStatus) OK() bool {
	return s.Error == ""
}

// CheckDatabase pings the pool behind db within timeout.
func CheckDatabase(ctx context.Context, db *gorm.DB, timeout time.Duration) DatabaseStatus {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := ping(ctx, db)
	status := DatabaseStatus{Status: "ok", Latency: time.Since(start)}
	if err != nil {
		status.Status = "unreachable"
		status.Error = err.Error()
	}
	return status
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}
