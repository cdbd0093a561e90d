package checks

import (
	"context"
	"time"

	"github.com/jansathi/portal/internal/app/maintenance"
	"github.com/jansathi/portal/internal/monitoring"
)

const defaultMaintenanceMaxAge = 30 * time.Minute

// MaintenanceReporter exposes the cleaner state the probe needs.
type MaintenanceReporter interface {
	Status() maintenance.RunStatus
}

// Maintenance verifies that the background cleaner runs successfully within
// the expected interval. Expired challenges and open-but-ended policy votes
// accumulate when it stalls.
func Maintenance(reporter MaintenanceReporter, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if reporter == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "maintenance not configured",
				Duration: time.Since(start),
			}
		}

		status := reporter.Status()
		switch {
		case status.ConsecutiveFailures > 0:
			details := "consecutive failures"
			if status.LastError != nil {
				details = status.LastError.Error()
			}
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDown,
				Details:  details,
				Duration: time.Since(start),
			}
		case status.LastRunAt.IsZero():
			// Pending first run; the scheduler may simply not have fired yet.
			return monitoring.ProbeResult{
				Status:   monitoring.StatusUp,
				Details:  "pending first run",
				Duration: time.Since(start),
			}
		case time.Since(status.LastRunAt) > maxAge:
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "stale run " + status.LastRunAt.UTC().Format(time.RFC3339),
				Duration: time.Since(start),
			}
		default:
			return monitoring.ProbeResult{
				Status:   monitoring.StatusUp,
				Duration: time.Since(start),
			}
		}
	})
}
