// Package jobs holds the background pollers that drive claim upkeep through
// the same services the API uses.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Worker is a long-running background loop bound to a context.
type Worker interface {
	Start(ctx context.Context)
	Name() string
}

// BaseWorker carries the shared polling loop. Embedders supply the work
// function; the loop runs it once at startup and then on every tick until the
// context ends, tracking how many polls in a row have failed.
type BaseWorker struct {
	name     string
	interval time.Duration
	log      *slog.Logger
}

func NewBaseWorker(name string, interval time.Duration, log *slog.Logger) BaseWorker {
	return BaseWorker{
		name:     name,
		interval: interval,
		log:      log.With("worker", name),
	}
}

// Poll blocks until ctx is done. Errors from work are logged, never fatal: a
// transient store outage must not kill the loop.
func (w *BaseWorker) Poll(ctx context.Context, work func(context.Context) error) {
	w.log.Info("worker started", "interval", w.interval)

	var failStreak int
	run := func() {
		if err := work(ctx); err != nil {
			failStreak++
			w.log.Error("poll failed", "consecutive_failures", failStreak, "err", err)
			return
		}
		failStreak = 0
	}

	run()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			run()
		}
	}
}
