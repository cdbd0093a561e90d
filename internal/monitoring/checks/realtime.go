package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/jansathi/portal/internal/monitoring"
)

// RealtimeObserver exposes the minimal hub state required to evaluate
// live-feed health.
type RealtimeObserver interface {
	ActiveConnections() int64
}

// Realtime reports on the admin live-feed hub. The hub carries dashboard
// traffic only, so an absent hub degrades rather than fails readiness.
func Realtime(observer RealtimeObserver) monitoring.Check {
	return monitoring.NewCheck("realtime", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if observer == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  "realtime hub unavailable",
				Duration: time.Since(start),
			}
		}

		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  fmt.Sprintf("%d active connections", observer.ActiveConnections()),
			Duration: time.Since(start),
		}
	})
}
