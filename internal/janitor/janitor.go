// Package janitor runs periodic housekeeping. It never spawns occurrences:
// spawning stays tied to completions and explicit requests.
package janitor

import (
	"context"
	"fmt"
	"time"

	"lifeplanner-api/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Purger drops idle entries and reports how many it removed.
type Purger interface {
	Purge() int
}

// Janitor wraps a cron scheduler.
type Janitor struct {
	cron   *cron.Cron
	locks  Purger
	logger *zap.Logger
}

// New registers the lock purge job on spec, e.g. "@every 5m".
func New(spec string, loc *time.Location, locks Purger, logger *zap.Logger) (*Janitor, error) {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &Janitor{
		cron:   cron.New(cron.WithLocation(loc)),
		locks:  locks,
		logger: logger.Named("janitor"),
	}
	if _, err := j.cron.AddFunc(spec, func() { j.PurgeLocks() }); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", spec, err)
	}
	return j, nil
}

// PurgeLocks drops idle series locks once.
func (j *Janitor) PurgeLocks() int {
	n := j.locks.Purge()
	if n > 0 {
		metrics.SeriesLocksPurged.Add(float64(n))
		j.logger.Debug("idle series locks purged", zap.Int("count", n))
	}
	return n
}

func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info("janitor started")
}

// Stop waits for a running job to finish or ctx to expire.
func (j *Janitor) Stop(ctx context.Context) {
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	j.logger.Info("janitor stopped")
}
