package usecase

import (
	"context"
	"time"

	"VolScan/internal/domain/models"
	"VolScan/pkg/cache"
	applogger "VolScan/pkg/logger"
)

const defaultLockTTL = 30 * time.Minute

// Runner executes one scan.
type Runner interface {
	Run(ctx context.Context, rp RunParams) (*models.Report, error)
	Params() models.AnalysisParams
}

// GuardedRunner serializes runs through a cache lock so the scheduler, the
// HTTP API and other replicas never scan concurrently.
type GuardedRunner struct {
	next Runner
	lock cache.Service
	key  string
	ttl  time.Duration
	log  *applogger.Logger
}

func NewGuardedRunner(next Runner, lock cache.Service, key string, ttl time.Duration, log *applogger.Logger) *GuardedRunner {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &GuardedRunner{next: next, lock: lock, key: key, ttl: ttl, log: log}
}

var _ Runner = (*GuardedRunner)(nil)

// Run returns ErrRunInProgress when the lock is held elsewhere.
func (g *GuardedRunner) Run(ctx context.Context, rp RunParams) (*models.Report, error) {
	ok, err := g.lock.TryLock(ctx, g.key, g.ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrRunInProgress
	}
	defer func() {
		// release with a fresh context so a cancelled run still unlocks
		uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.lock.Unlock(uctx, g.key); err != nil {
			g.log.Warn("run lock release failed", applogger.String("key", g.key), applogger.Error(err))
		}
	}()
	return g.next.Run(ctx, rp)
}

func (g *GuardedRunner) Params() models.AnalysisParams { return g.next.Params() }
