package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jansathi/portal/internal/cache"
	"github.com/jansathi/portal/internal/services"
	"github.com/jansathi/portal/pkg/logger"
)

const (
	defaultChallengeSpec = "@every 1m"
	defaultPolicySpec    = "@every 5m"
)

// expiredDeleter is implemented by cache backends that persist entries and
// need periodic reaping. The in-memory store sweeps itself; Redis expires
// keys natively.
type expiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner coordinates background maintenance: reaping expired challenge
// tokens from the cache and completing policies whose voting window closed.
type Cleaner struct {
	store    cache.Store
	policies *services.PolicyService
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger

	challengeSchedule string
	policySchedule    string

	mu                  sync.Mutex
	lastRunAt           time.Time
	consecutiveFailures int
	lastErr             error
}

// RunStatus is a point-in-time view of the cleaner's recent activity, used
// by the maintenance health probe.
type RunStatus struct {
	LastRunAt           time.Time
	ConsecutiveFailures int
	LastError           error
}

// Status reports when maintenance last ran and whether it has been failing.
func (c *Cleaner) Status() RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return RunStatus{
		LastRunAt:           c.lastRunAt,
		ConsecutiveFailures: c.consecutiveFailures,
		LastError:           c.lastErr,
	}
}

func (c *Cleaner) recordRun(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRunAt = c.now()
	c.lastErr = err
	if err != nil {
		c.consecutiveFailures++
		return
	}
	c.consecutiveFailures = 0
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithChallengeSchedule overrides the cron specification for challenge reaping.
func WithChallengeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.challengeSchedule = spec
		}
	}
}

// WithPolicySchedule overrides the cron specification for closing expired policies.
func WithPolicySchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.policySchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding job being skipped.
func NewCleaner(store cache.Store, policies *services.PolicyService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		store:             store,
		policies:          policies,
		now:               time.Now,
		challengeSchedule: defaultChallengeSpec,
		policySchedule:    defaultPolicySpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at
// least one job is enabled.
func (c *Cleaner) Start() error {
	registered := false

	if c.sweeper() != nil || c.memory() != nil {
		if _, err := c.cron.AddFunc(c.challengeSchedule, func() {
			err := c.sweepChallenges(context.Background())
			c.recordRun(err)
			if err != nil {
				c.log.Warn("challenge sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		registered = true
	}

	if c.policies != nil {
		if _, err := c.cron.AddFunc(c.policySchedule, func() {
			closed, err := c.policies.CloseExpired(context.Background())
			c.recordRun(err)
			if err != nil {
				c.log.Warn("policy close failed", zap.Error(err))
				return
			}
			if closed > 0 {
				c.log.Info("closed expired policies", zap.Int64("count", closed))
			}
		}); err != nil {
			return err
		}
		registered = true
	}

	if !registered {
		return nil
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sweeper() != nil || c.memory() != nil {
		if err := c.sweepChallenges(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.policies != nil {
		if _, err := c.policies.CloseExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	c.recordRun(errs)
	return errs
}

func (c *Cleaner) sweepChallenges(ctx context.Context) error {
	if deleter := c.sweeper(); deleter != nil {
		removed, err := deleter.DeleteExpired(ctx, c.now())
		if err != nil {
			return err
		}
		if removed > 0 {
			c.log.Debug("reaped expired challenges", zap.Int64("count", removed))
		}
		return nil
	}

	if mem := c.memory(); mem != nil {
		if removed := mem.Sweep(); removed > 0 {
			c.log.Debug("reaped expired challenges", zap.Int("count", removed))
		}
	}
	return nil
}

func (c *Cleaner) sweeper() expiredDeleter {
	if deleter, ok := c.store.(expiredDeleter); ok {
		return deleter
	}
	return nil
}

func (c *Cleaner) memory() *cache.MemoryStore {
	if mem, ok := c.store.(*cache.MemoryStore); ok {
		return mem
	}
	return nil
}
