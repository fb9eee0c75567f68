package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor periodically prunes events for all identifiers. Per-check pruning
// only touches identifiers that keep sending traffic.
type Janitor struct {
	log       EventLog
	retention time.Duration
	now       func() time.Time
	cron      *cron.Cron
}

// NewJanitor schedules a global prune of events older than retention.
// schedule uses the standard cron syntax, including descriptors such as
// "@every 5m".
func NewJanitor(log EventLog, retention time.Duration, schedule string) (*Janitor, error) {
	j := &Janitor{
		log:       log,
		retention: retention,
		now:       time.Now,
		cron:      cron.New(),
	}

	if _, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := j.RunOnce(ctx); err != nil {
			slog.Error("rate limit janitor failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("parsing prune schedule %q: %w", schedule, err)
	}

	return j, nil
}

// RunOnce prunes every identifier immediately.
func (j *Janitor) RunOnce(ctx context.Context) error {
	before := j.now().Add(-j.retention)
	if err := j.log.Prune(ctx, "", before); err != nil {
		return err
	}
	slog.Debug("rate limit events pruned", "before", before)
	return nil
}

// Start runs the schedule in the background.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running prune to finish or ctx to
// expire.
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
