// Package jobs runs deferred and periodic work: simulated chat replies and
// the presence sweeper.
package jobs

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Scheduler schedules tasks and hands back an ID that can cancel them.
type Scheduler interface {
	// After runs task once, delay from now.
	After(delay time.Duration, task func()) (string, error)
	// Every runs task on a fixed interval until cancelled.
	Every(interval time.Duration, task func()) (string, error)
	// Cancel drops a scheduled task. Unknown or finished IDs are ignored.
	Cancel(id string) error
}

// GocronScheduler is the production Scheduler.
type GocronScheduler struct {
	sched gocron.Scheduler
	clock clockwork.Clock
}

// NewGocronScheduler creates and starts a scheduler driven by clock.
func NewGocronScheduler(clock clockwork.Clock) (*GocronScheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	sched.Start()
	return &GocronScheduler{sched: sched, clock: clock}, nil
}

func (g *GocronScheduler) After(delay time.Duration, task func()) (string, error) {
	start := gocron.OneTimeJobStartImmediately()
	if delay > 0 {
		start = gocron.OneTimeJobStartDateTime(g.clock.Now().Add(delay))
	}
	job, err := g.sched.NewJob(gocron.OneTimeJob(start), gocron.NewTask(task))
	if err != nil {
		return "", fmt.Errorf("failed to schedule one-time job: %w", err)
	}
	return job.ID().String(), nil
}

func (g *GocronScheduler) Every(interval time.Duration, task func()) (string, error) {
	job, err := g.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to schedule periodic job: %w", err)
	}
	return job.ID().String(), nil
}

func (g *GocronScheduler) Cancel(id string) error {
	jobID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", id, err)
	}
	if err := g.sched.RemoveJob(jobID); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		return err
	}
	return nil
}

// Shutdown stops the scheduler and waits for running jobs.
func (g *GocronScheduler) Shutdown() {
	if err := g.sched.Shutdown(); err != nil {
		log.Printf("WARNING: scheduler shutdown: %v", err)
	}
}
