// Package scheduler drives periodic refresh cycles on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Job on a standard cron spec (five fields or a
// descriptor such as "@every 60s"). Overlapping runs are skipped.
type Scheduler struct {
	cron *cron.Cron
	job  *Job
	ctx  context.Context
}

// New registers job under spec. ctx bounds every run.
func New(ctx context.Context, spec string, job *Job) (*Scheduler, error) {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	s := &Scheduler{cron: c, job: job, ctx: ctx}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("register refresh job %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[scheduler] started")
}

// Stop stops the cron loop and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] stopped")
}

// RunNow executes one cycle immediately, for startup warm-up.
func (s *Scheduler) RunNow() {
	s.tick()
}

func (s *Scheduler) tick() {
	if s.ctx.Err() != nil {
		return
	}
	// Errors are logged and counted inside the job.
	s.job.RunOnce(s.ctx)
}
