package directory

import (
	"context"
	"fidha/backend/internal/jobs"
	"log"
	"time"
)

// PresenceSweeper periodically runs SweepPresence on a scheduler.
type PresenceSweeper struct {
	Directory *Service
	Scheduler jobs.Scheduler
	Interval  time.Duration

	jobID string
}

func NewPresenceSweeper(dir *Service, sched jobs.Scheduler, interval time.Duration) *PresenceSweeper {
	return &PresenceSweeper{Directory: dir, Scheduler: sched, Interval: interval}
}

// Start registers the periodic job. Each run is bounded by ctx.
func (p *PresenceSweeper) Start(ctx context.Context) error {
	id, err := p.Scheduler.Every(p.Interval, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := p.Directory.SweepPresence(ctx); err != nil {
			log.Printf("ERROR: %v", err)
		}
	})
	if err != nil {
		return err
	}
	p.jobID = id
	log.Printf("INFO: Presence sweeper started (every %s)", p.Interval)
	return nil
}

// Stop cancels the periodic job.
func (p *PresenceSweeper) Stop() error {
	if p.jobID == "" {
		return nil
	}
	err := p.Scheduler.Cancel(p.jobID)
	p.jobID = ""
	return err
}
