// internal/scheduler/scheduler.go
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is a named cron schedule that produces a digest for Target.
type Job struct {
	Name     string
	Schedule string
	Target   string
	Enabled  bool
}

// Handler is the callback invoked when a job fires.
type Handler func(job Job)

// Scheduler fires enabled jobs on their cron schedules.
type Scheduler struct {
	jobs    []Job
	handler Handler
	cron    *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate reports whether expr parses as a schedule.
func Validate(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// New creates a Scheduler for jobs. handler is called every time one fires.
func New(jobs []Job, handler Handler) *Scheduler {
	return &Scheduler{
		jobs:    jobs,
		handler: handler,
		cron:    cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers enabled jobs and starts the cron ticker. Jobs with an
// invalid schedule are logged and skipped. It returns the number of jobs
// registered.
func (s *Scheduler) Start() int {
	registered := 0
	for _, job := range s.jobs {
		if job.Schedule == "" || !job.Enabled {
			continue
		}

		job := job
		_, err := s.cron.AddFunc(job.Schedule, func() {
			slog.Info("digest firing", "name", job.Name, "target", job.Target)
			s.handler(job)
		})
		if err != nil {
			slog.Error("invalid digest schedule", "name", job.Name, "schedule", job.Schedule, "error", err)
			continue
		}
		registered++
		slog.Info("scheduled digest", "name", job.Name, "schedule", job.Schedule)
	}

	s.cron.Start()
	return registered
}

// Stop stops the cron ticker and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
