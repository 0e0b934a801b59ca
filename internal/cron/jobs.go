package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pruner deletes stored files older than maxAge, relative to now.
type Pruner interface {
	Prune(maxAge time.Duration, now time.Time) (int, error)
}

// StoragePruneJob enforces the file store retention period.
type StoragePruneJob struct {
	Store        Pruner
	MaxAge       time.Duration
	Logger       *slog.Logger
	Pruned       prometheus.Counter // optional
	ScheduleExpr string             // empty = default "17 * * * *"

	// Now defaults to time.Now.
	Now func() time.Time
}

// Compile-time interface check.
var _ Job = (*StoragePruneJob)(nil)

// Name implements Job.
func (j *StoragePruneJob) Name() string {
	return "storage_prune"
}

// Schedule implements Job.
func (j *StoragePruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "17 * * * *"
}

// Run removes files older than MaxAge.
func (j *StoragePruneJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: storage prune cancelled: %w", ctx.Err())
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}

	pruned, err := j.Store.Prune(j.MaxAge, now())
	if pruned > 0 {
		if j.Pruned != nil {
			j.Pruned.Add(float64(pruned))
		}
		j.Logger.Info("cron: pruned stored files", "count", pruned, "max_age", j.MaxAge)
	}
	if err != nil {
		return fmt.Errorf("cron: storage prune: %w", err)
	}
	return nil
}
