// Package schedule runs periodic incremental updates for the watch command.
package schedule

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler triggers a sync job on a fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	job       func(ctx context.Context) error
}

// New creates a Scheduler invoking job every interval.
func New(interval time.Duration, job func(ctx context.Context) error) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		job:       job,
	}
}

// Start schedules the job and starts the underlying scheduler. Jobs do not
// overlap: a run still in flight when the next tick fires delays the tick.
func (s *Scheduler) Start() error {
	s.scheduler.SingletonModeAll()

	_, err := s.scheduler.Every(s.interval).Do(func() {
		log.Printf("scheduler: starting sync run")

		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		defer cancel()

		if err := s.job(ctx); err != nil {
			log.Printf("scheduler: sync run failed: %v", err)
			return
		}
		log.Printf("scheduler: sync run completed")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
