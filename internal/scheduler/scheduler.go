// Package scheduler triggers the system's recurring jobs. Each job runs on
// its own loop, isolated from the others: one job failing or overrunning
// never blocks a different job's trigger.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/MikohMick/SEO-MACHINE/pkg/errors"
	"github.com/MikohMick/SEO-MACHINE/pkg/metrics"
)

// JobFunc is one job body. The returned string is a human-readable summary
// for logs and the operator API.
type JobFunc func(ctx context.Context) (string, error)

// Job is a registered job and its run state.
type Job struct {
	name     string
	fn       JobFunc
	schedule Schedule // nil means manual-only
	running  atomic.Bool
	reset    chan struct{}

	mu          sync.Mutex
	nextRun     time.Time
	lastRun     time.Time
	lastOutcome string
	lastSummary string
}

// JobStatus is a point-in-time view of a job for the operator API.
type JobStatus struct {
	Name        string    `json:"name"`
	Running     bool      `json:"running"`
	NextRun     time.Time `json:"next_run,omitzero"`
	LastRun     time.Time `json:"last_run,omitzero"`
	LastOutcome string    `json:"last_outcome,omitempty"`
	LastSummary string    `json:"last_summary,omitempty"`
}

// StopFlag is the halt switch consulted before every trigger. EmergencyStop
// is the Redis-backed implementation shared across processes.
type StopFlag interface {
	Engage(ctx context.Context) error
	Clear(ctx context.Context) error
	Engaged(ctx context.Context) bool
}

// Scheduler owns the registered jobs and the emergency stop.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	order   []string
	stop    StopFlag
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a Scheduler around the emergency stop flag.
func New(stop StopFlag, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		jobs:    make(map[string]*Job),
		stop:    stop,
		metrics: m,
		now:     time.Now,
		logger:  slog.Default().With("component", "scheduler"),
	}
}

// Register adds a job. A nil schedule registers a manual-only job that runs
// solely through RunJob. Register must be called before Start.
func (s *Scheduler) Register(name string, schedule Schedule, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[name] = &Job{name: name, fn: fn, schedule: schedule, reset: make(chan struct{}, 1)}
	s.order = append(s.order, name)
}

// Start runs every scheduled job loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	s.mu.Lock()
	for _, name := range s.order {
		job := s.jobs[name]
		if job.schedule == nil {
			continue
		}
		g.Go(func() error {
			s.loop(ctx, job)
			return nil
		})
	}
	s.mu.Unlock()

	s.logger.Info("scheduler started", "jobs", len(s.order))
	return g.Wait()
}

// loop waits out each trigger in turn. A reset poke recomputes the wait
// from the current clock; a trigger during an emergency stop is skipped,
// not deferred.
func (s *Scheduler) loop(ctx context.Context, job *Job) {
	for {
		next := job.schedule.Next(s.now())
		job.mu.Lock()
		job.nextRun = next
		job.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-job.reset:
			timer.Stop()
			s.logger.Info("schedule reset", "job", job.name)
			continue
		case <-timer.C:
		}

		if s.stop != nil && s.stop.Engaged(ctx) {
			s.logger.Warn("trigger skipped, emergency stop engaged", "job", job.name)
			if s.metrics != nil {
				s.metrics.JobRunsTotal.WithLabelValues(job.name, "skipped").Inc()
			}
			continue
		}

		if _, err := s.run(ctx, job, "scheduled"); err != nil {
			s.logger.Error("scheduled run failed", "job", job.name, "error", err)
		}
	}
}

// RunJob triggers one job by name on operator request. It refuses while the
// emergency stop is engaged and while the same job is already running.
func (s *Scheduler) RunJob(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("job %q: %w", name, apperrors.ErrUnknownJob)
	}
	if s.stop != nil && s.stop.Engaged(ctx) {
		return "", fmt.Errorf("job %q: %w", name, apperrors.ErrEmergencyStopped)
	}
	return s.run(ctx, job, "manual")
}

// run executes the job body under the re-entrancy guard: a job that is
// still running cannot be started a second time, scheduled or manual.
func (s *Scheduler) run(ctx context.Context, job *Job, trigger string) (string, error) {
	if !job.running.CompareAndSwap(false, true) {
		return "", fmt.Errorf("job %q: %w", job.name, apperrors.ErrJobRunning)
	}
	defer job.running.Store(false)

	start := s.now()
	s.logger.Info("job started", "job", job.name, "trigger", trigger)
	summary, err := job.fn(ctx)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "failure"
		summary = err.Error()
	}
	if s.metrics != nil {
		s.metrics.JobRunsTotal.WithLabelValues(job.name, outcome).Inc()
		s.metrics.JobDuration.WithLabelValues(job.name).Observe(elapsed.Seconds())
	}

	job.mu.Lock()
	job.lastRun = start
	job.lastOutcome = outcome
	job.lastSummary = summary
	job.mu.Unlock()

	s.logger.Info("job finished",
		"job", job.name, "trigger", trigger, "outcome", outcome,
		"duration", elapsed, "summary", summary)
	return summary, err
}

// ResetSchedule pokes every job loop to recompute its next trigger from the
// current clock.
func (s *Scheduler) ResetSchedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.order {
		select {
		case s.jobs[name].reset <- struct{}{}:
		default:
		}
	}
	s.logger.Info("all schedules reset")
}

// EmergencyStop raises the halt flag.
func (s *Scheduler) EmergencyStop(ctx context.Context) error {
	return s.stop.Engage(ctx)
}

// Resume lowers the halt flag.
func (s *Scheduler) Resume(ctx context.Context) error {
	return s.stop.Clear(ctx)
}

// Stopped reports whether the halt flag is raised.
func (s *Scheduler) Stopped(ctx context.Context) bool {
	return s.stop != nil && s.stop.Engaged(ctx)
}

// Status reports every job in registration order.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.order))
	for _, name := range s.order {
		job := s.jobs[name]
		job.mu.Lock()
		statuses = append(statuses, JobStatus{
			Name:        job.name,
			Running:     job.running.Load(),
			NextRun:     job.nextRun,
			LastRun:     job.lastRun,
			LastOutcome: job.lastOutcome,
			LastSummary: job.lastSummary,
		})
		job.mu.Unlock()
	}
	return statuses
}
