// Package scheduler adapts robfig/cron to the Scheduler port.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"MediaTrends/internal/ports"
)

// Cron drives recurring jobs on standard five-field cron expressions in a
// fixed timezone.
type Cron struct {
	inner *cron.Cron
}

var _ ports.Scheduler = (*Cron)(nil)

// New builds a cron driver bound to the given location.
func New(loc *time.Location) *Cron {
	return &Cron{inner: cron.New(cron.WithLocation(loc))}
}

// Schedule registers a job for the cron spec. Jobs receive the tick time.
func (c *Cron) Schedule(spec string, job func(time.Time)) error {
	_, err := c.inner.AddFunc(spec, func() {
		job(time.Now())
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	return nil
}

// Start launches the cron loop in its own goroutine.
func (c *Cron) Start() {
	c.inner.Start()
}

// Stop halts scheduling and waits for running jobs, bounded by ctx.
func (c *Cron) Stop(ctx context.Context) error {
	done := c.inner.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
