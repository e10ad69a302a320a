// Package jobs runs periodic maintenance in the background.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Reconciler repairs completion flags and reports how many rows it fixed.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// Run schedules r every interval, starting immediately, until ctx is done.
// Runs never overlap.
func Run(ctx context.Context, r Reconciler, interval time.Duration, logger *slog.Logger) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			start := time.Now()
			n, err := r.Reconcile(ctx)
			if err != nil {
				logger.Error("reconcile failed", "error", err)
				return
			}
			logger.Debug("reconcile done", "repaired", n, "duration_ms", time.Since(start).Milliseconds())
		}),
		gocron.WithName("reconcile-completion"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("scheduling reconcile: %w", err)
	}

	sched.Start()
	logger.Info("scheduler started", "job", "reconcile-completion", "interval", interval.String())

	<-ctx.Done()
	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("stopping scheduler: %w", err)
	}
	return nil
}
