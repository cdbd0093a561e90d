package checks

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/jansathi/portal/internal/cache"
	"github.com/jansathi/portal/internal/monitoring"
)

const (
	defaultCacheTimeout = 2 * time.Second

	probeKey = "jansathi:healthcheck"
)

// CacheStore returns a readiness probe that exercises the challenge store
// with a set/take round trip. The store holds every pending CAPTCHA and OTP,
// so a broken store means nobody can sign in.
func CacheStore(store cache.Store, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDown,
				Details:  "challenge store not configured",
				Duration: time.Since(start),
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultCacheTimeout))
		defer cancel()

		payload := []byte(time.Now().UTC().Format(time.RFC3339Nano))
		if err := store.Set(probeCtx, probeKey, payload, time.Minute); err != nil {
			return monitoring.ResultFromError("cache", err, time.Since(start))
		}

		value, found, err := store.Take(probeCtx, probeKey)
		if err != nil {
			return monitoring.ResultFromError("cache", err, time.Since(start))
		}
		if !found || !bytes.Equal(value, payload) {
			return monitoring.ResultFromError("cache", errors.New("probe value lost in round trip"), time.Since(start))
		}

		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Duration: time.Since(start),
		}
	})
}
