// Package scheduler owns the recurring background jobs: the hourly
// appointment sync and the daily reminder digest. Jobs are registered
// statically at startup; the scheduler enforces one execution per job at a
// time, coalesces missed firings within a grace window, and exposes status
// and manual-trigger operations for the ops endpoints.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// JobID identifies a registered job.
type JobID string

const (
	JobSyncAppointments JobID = "sync_appointments"
	JobRemindToday      JobID = "remind_today"
)

// Job is one recurring unit of work. Run does the whole batch for one
// firing; the scheduler only consumes the error for logging.
type Job interface {
	ID() JobID
	Name() string
	Run(ctx context.Context) error
}

// JobStatus is the per-job view returned by Status.
type JobStatus struct {
	ID      JobID     `json:"id"`
	Name    string    `json:"name"`
	Trigger string    `json:"trigger"`
	Running bool      `json:"running"`
	NextRun time.Time `json:"next_run,omitzero"`
	LastRun time.Time `json:"last_run,omitzero"`
}

// SchedulerStatus is the full view returned by Status.
type SchedulerStatus struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

// entry is the scheduler's bookkeeping for one registered job.
type entry struct {
	job      Job
	schedule cron.Schedule
	trigger  string
	grace    time.Duration

	mu      sync.Mutex // guards next/last
	next    time.Time
	last    time.Time
	running sync.Mutex // held for the duration of a trigger-driven run
}

// Scheduler drives registered jobs on their triggers from a single
// background goroutine. Construct with New, register jobs, then Start.
type Scheduler struct {
	clock      types.Clock
	logger     *slog.Logger
	jobTimeout time.Duration
	tick       time.Duration
	workers    *semaphore.Weighted

	mu       sync.Mutex
	entries  []*entry
	order    map[JobID]*entry
	started  bool
	stop     chan struct{}
	done     chan struct{}
	inFlight sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source, for tests.
func WithClock(c types.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithTickInterval overrides how often the run loop checks for due jobs.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.tick = d }
}

// New creates a Scheduler. jobTimeout bounds each job execution and workers
// caps how many job bodies run in parallel across distinct jobs.
func New(jobTimeout time.Duration, workers int, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}
	if workers <= 0 {
		workers = 4
	}
	s := &Scheduler{
		clock:      types.RealClock{},
		logger:     logger,
		jobTimeout: jobTimeout,
		tick:       time.Second,
		workers:    semaphore.NewWeighted(int64(workers)),
		order:      make(map[JobID]*entry),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddIntervalJob registers a job that fires every interval. Missed firings
// within grace are coalesced into one catch-up run; older ones are dropped.
func (s *Scheduler) AddIntervalJob(job Job, interval, grace time.Duration) error {
	return s.add(job, cron.Every(interval), fmt.Sprintf("every %s", interval), grace)
}

// AddDailyJob registers a job that fires once a day at hour:minute in loc.
func (s *Scheduler) AddDailyJob(job Job, hour, minute int, loc *time.Location, grace time.Duration) error {
	spec := fmt.Sprintf("CRON_TZ=%s %d %d * * *", loc.String(), minute, hour)
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected,
			fmt.Sprintf("invalid daily trigger for job %s", job.ID()), err)
	}
	trigger := fmt.Sprintf("daily at %02d:%02d %s", hour, minute, loc)
	return s.add(job, schedule, trigger, grace)
}

func (s *Scheduler) add(job Job, schedule cron.Schedule, trigger string, grace time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "cannot register jobs after start", nil)
	}
	if _, exists := s.order[job.ID()]; exists {
		return types.NewAppError(types.ErrCodeInternalUnexpected,
			fmt.Sprintf("job %s already registered", job.ID()), nil)
	}

	e := &entry{job: job, schedule: schedule, trigger: trigger, grace: grace}
	s.entries = append(s.entries, e)
	s.order[job.ID()] = e
	return nil
}

// Start launches the run loop. Triggers are armed from the current time;
// nothing fires for schedules whose first occurrence is in the future.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	now := s.clock.Now()
	for _, e := range s.entries {
		e.mu.Lock()
		e.next = e.schedule.Next(now)
		e.mu.Unlock()
		s.logger.Info("job registered",
			"job_id", e.job.ID(),
			"trigger", e.trigger,
			"next_run", e.next,
		)
	}

	go s.run()
	s.logger.Info("scheduler started", "jobs", len(s.entries))
}

// Stop shuts the run loop down and waits for in-flight job executions to
// finish before returning.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	close(s.stop)
	<-s.done
	s.inFlight.Wait()
	s.logger.Info("scheduler stopped")
}

// run is the scheduler's single background loop. Each tick fires every due
// job at most once; one slow job never delays another because executions
// happen on their own goroutines.
func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.fireDue(s.clock.Now())
		}
	}
}

// fireDue checks every entry against now and dispatches the due ones.
func (s *Scheduler) fireDue(now time.Time) {
	for _, e := range s.entries {
		e.mu.Lock()
		due := !e.next.IsZero() && !e.next.After(now)
		if !due {
			e.mu.Unlock()
			continue
		}
		missedBy := now.Sub(e.next)
		// Any number of missed firings collapses into one run; the next
		// fire time always advances past now.
		e.next = e.schedule.Next(now)
		e.mu.Unlock()

		if missedBy > e.grace {
			s.logger.Warn("dropping job firing past its grace window",
				"job_id", e.job.ID(),
				"missed_by", missedBy,
				"grace", e.grace,
			)
			continue
		}

		s.dispatch(e, now)
	}
}

// dispatch runs the entry's job on its own goroutine unless a previous
// trigger-driven run is still in flight, in which case this firing is
// skipped rather than queued.
func (s *Scheduler) dispatch(e *entry, firedAt time.Time) {
	if !e.running.TryLock() {
		s.logger.Warn("skipping job firing; previous run still in flight",
			"job_id", e.job.ID(),
		)
		return
	}

	s.inFlight.Add(1)
	go func() {
		defer s.inFlight.Done()
		defer e.running.Unlock()

		if err := s.workers.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer s.workers.Release(1)

		e.mu.Lock()
		e.last = firedAt
		e.mu.Unlock()

		s.execute(e.job)
	}()
}

// execute runs one job body under the job timeout and logs the outcome.
func (s *Scheduler) execute(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	started := s.clock.Now()
	s.logger.InfoContext(ctx, "job started", "job_id", job.ID())

	if err := job.Run(ctx); err != nil {
		s.logger.ErrorContext(ctx, "job failed",
			"job_id", job.ID(),
			"duration", s.clock.Now().Sub(started),
			"error", err,
		)
		return
	}

	s.logger.InfoContext(ctx, "job finished",
		"job_id", job.ID(),
		"duration", s.clock.Now().Sub(started),
	)
}

// RunNow synchronously executes the job body out of band. It does not take
// the single-instance lock, so a manual run can overlap a trigger-driven run
// of the same job; callers use it for operational re-triggers where that
// trade-off is acceptable.
func (s *Scheduler) RunNow(ctx context.Context, id JobID) error {
	s.mu.Lock()
	e, ok := s.order[id]
	s.mu.Unlock()
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundJob,
			fmt.Sprintf("no job registered with id %s", id), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	s.logger.InfoContext(ctx, "manual job run", "job_id", id)
	return e.job.Run(ctx)
}

// Status reports the scheduler and per-job state.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	running := s.started
	entries := s.entries
	s.mu.Unlock()

	jobs := make([]JobStatus, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		js := JobStatus{
			ID:      e.job.ID(),
			Name:    e.job.Name(),
			Trigger: e.trigger,
			Running: running,
			NextRun: e.next,
			LastRun: e.last,
		}
		e.mu.Unlock()
		jobs = append(jobs, js)
	}
	return SchedulerStatus{Running: running, Jobs: jobs}
}
