// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package scheduler owns the jobs and the two stimuli that start them: the
// internal cron timer and the external HTTP trigger. Both paths go through
// the same per-job idle/running guard, so a stimulus that arrives while the
// job is running is a no-op.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"socialpilot/internal/cache"
	"socialpilot/internal/metrics"
)

// Job names.
const (
	JobGeneration = "generation"
	JobPublishing = "publishing"
)

// Skip reasons.
const (
	ReasonAlreadyRunning = "already running"
	ReasonLeaseHeld      = "running on another instance"
)

// ErrUnknownJob is returned when triggering a job that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// JobFunc is the work a job performs. The returned value is reported in
// the Outcome.
type JobFunc func(ctx context.Context) (any, error)

// Outcome is what a stimulus produced.
type Outcome struct {
	Job      string        `json:"job"`
	Skipped  bool          `json:"skipped"`
	Reason   string        `json:"reason,omitempty"`
	Result   any           `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// Status is a job's guard state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
)

// JobState is a point-in-time view of a job.
type JobState struct {
	Name         string     `json:"name"`
	Status       Status     `json:"status"`
	Schedules    []string   `json:"schedules,omitempty"`
	Runs         int        `json:"runs"`
	Skips        int        `json:"skips"`
	LastStarted  *time.Time `json:"last_started,omitempty"`
	LastFinished *time.Time `json:"last_finished,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
}

type job struct {
	name    string
	fn      JobFunc
	running atomic.Bool

	mu        sync.Mutex
	schedules []string
	entries   []cron.EntryID
	runs      int
	skips     int
	started   *time.Time
	finished  *time.Time
	lastErr   string
}

// Options configures an Orchestrator.
type Options struct {
	Leases   LeaseProvider // optional cross-process leases
	Metrics  *metrics.Metrics
	Location *time.Location // cron time zone, UTC when nil
}

// Orchestrator runs registered jobs under their guards.
type Orchestrator struct {
	leases  LeaseProvider
	metrics *metrics.Metrics
	cron    *cron.Cron
	loc     *time.Location
	now     func() time.Time

	mu   sync.RWMutex
	jobs map[string]*job
	base context.Context
}

// New creates an orchestrator with no jobs.
func New(opts Options) *Orchestrator {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug))
	return &Orchestrator{
		leases:  opts.Leases,
		metrics: opts.Metrics,
		cron:    cron.New(cron.WithLocation(loc), cron.WithLogger(logger)),
		loc:     loc,
		now:     time.Now,
		jobs:    make(map[string]*job),
		base:    context.Background(),
	}
}

// Register adds a job. Registering a name twice replaces the function.
func (o *Orchestrator) Register(name string, fn JobFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if j, ok := o.jobs[name]; ok {
		j.fn = fn
		return
	}
	o.jobs[name] = &job{name: name, fn: fn}
}

// Schedule adds a cron entry (standard five-field spec or descriptor) that
// fires the job.
func (o *Orchestrator) Schedule(name, spec string) error {
	j, err := o.job(name)
	if err != nil {
		return err
	}
	id, err := o.cron.AddFunc(spec, func() {
		o.mu.RLock()
		ctx := o.base
		o.mu.RUnlock()
		slog.Debug("cron fired", "job", name, "spec", spec)
		o.Trigger(ctx, name)
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	j.mu.Lock()
	j.schedules = append(j.schedules, spec)
	j.entries = append(j.entries, id)
	j.mu.Unlock()
	slog.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

// Start runs the cron timer. Timer-fired jobs run under ctx.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.base = ctx
	o.mu.Unlock()
	o.cron.Start()
	slog.Info("scheduler started", "entries", len(o.cron.Entries()))
}

// Stop halts the timer. The returned context is done once timer-fired
// jobs already in progress have finished.
func (o *Orchestrator) Stop() context.Context {
	return o.cron.Stop()
}

// Trigger runs the job now unless it is already running. The job is not
// cancelled when ctx is; a dropped HTTP caller does not abort a cycle.
func (o *Orchestrator) Trigger(ctx context.Context, name string) (Outcome, error) {
	j, err := o.job(name)
	if err != nil {
		return Outcome{}, err
	}
	return o.run(context.WithoutCancel(ctx), j), nil
}

// Running reports whether the job is running in this process.
func (o *Orchestrator) Running(name string) bool {
	j, err := o.job(name)
	return err == nil && j.running.Load()
}

// States returns a snapshot of every job, sorted by name.
func (o *Orchestrator) States() []JobState {
	o.mu.RLock()
	jobs := make([]*job, 0, len(o.jobs))
	for _, j := range o.jobs {
		jobs = append(jobs, j)
	}
	o.mu.RUnlock()

	out := make([]JobState, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, o.state(j))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func (o *Orchestrator) state(j *job) JobState {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := JobState{
		Name:         j.name,
		Status:       StatusIdle,
		Schedules:    append([]string(nil), j.schedules...),
		Runs:         j.runs,
		Skips:        j.skips,
		LastStarted:  j.started,
		LastFinished: j.finished,
		LastError:    j.lastErr,
	}
	if j.running.Load() {
		s.Status = StatusRunning
	}
	for _, id := range j.entries {
		e := o.cron.Entry(id)
		next := e.Next
		if next.IsZero() && e.Schedule != nil {
			next = e.Schedule.Next(o.now().In(o.loc))
		}
		if next.IsZero() {
			continue
		}
		if s.NextRun == nil || next.Before(*s.NextRun) {
			s.NextRun = &next
		}
	}
	return s
}

func (o *Orchestrator) job(name string) (*job, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	j, ok := o.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return j, nil
}

func (o *Orchestrator) run(ctx context.Context, j *job) Outcome {
	if !j.running.CompareAndSwap(false, true) {
		return o.skip(j, ReasonAlreadyRunning)
	}
	defer j.running.Store(false)

	if o.leases != nil {
		lease, err := o.leases.Acquire(ctx, j.name)
		switch {
		case errors.Is(err, cache.ErrLeaseHeld):
			return o.skip(j, ReasonLeaseHeld)
		case err != nil:
			slog.Warn("job lease unavailable, running with local guard only", "job", j.name, "error", err)
		default:
			leaseCtx, stopKeepAlive := context.WithCancel(ctx)
			go func() {
				if err := lease.KeepAlive(leaseCtx); err != nil {
					slog.Warn("job lease renewal failed", "job", j.name, "error", err)
				}
			}()
			defer func() {
				stopKeepAlive()
				relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := lease.Release(relCtx); err != nil {
					slog.Warn("job lease release failed", "job", j.name, "error", err)
				}
			}()
		}
	}

	started := o.now()
	j.mu.Lock()
	j.started = &started
	fn := j.fn
	j.mu.Unlock()

	slog.Info("job started", "job", j.name)
	o.metrics.JobStarted(j.name)

	result, err := safeCall(ctx, fn)
	elapsed := o.now().Sub(started)

	out := Outcome{Job: j.name, Result: result, Duration: elapsed}
	label := "completed"
	if err != nil {
		out.Error = err.Error()
		label = "failed"
		var pe *panicError
		if errors.As(err, &pe) {
			label = "panicked"
			slog.Error("job panicked", "job", j.name, "panic", pe.value, "stack", string(pe.stack))
		} else {
			slog.Error("job failed", "job", j.name, "duration", elapsed, "error", err)
		}
	} else {
		slog.Info("job finished", "job", j.name, "duration", elapsed)
	}
	o.metrics.JobFinished(j.name, label, elapsed)

	finished := o.now()
	j.mu.Lock()
	j.runs++
	j.finished = &finished
	j.lastErr = out.Error
	j.mu.Unlock()
	return out
}

func (o *Orchestrator) skip(j *job, reason string) Outcome {
	j.mu.Lock()
	j.skips++
	j.mu.Unlock()
	slog.Info("job trigger ignored", "job", j.name, "reason", reason)
	o.metrics.JobFinished(j.name, "skipped", 0)
	return Outcome{Job: j.name, Skipped: true, Reason: reason}
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

// safeCall runs fn and converts a panic into an error.
func safeCall(ctx context.Context, fn JobFunc) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = &panicError{value: rec, stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}
