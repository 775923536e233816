package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/robfig/cron/v3"
)

// Job is one run of a recurring task.
type Job func(ctx context.Context) error

// ErrorHandler is told about every job run that returned an error.
type ErrorHandler func(ctx context.Context, job string, err error)

type JobInfo struct {
	Name string    `json:"name"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

// Scheduler drives recurring jobs on top of cron. Runs of the same job never
// overlap, and a run that could not start within its grace window is
// dropped rather than executed late. Runs missed while the process was down
// are not replayed.
type Scheduler struct {
	cron    *cron.Cron
	now     func() time.Time
	onError ErrorHandler

	mu     sync.Mutex
	ctx    context.Context
	names  map[cron.EntryID]string
	weekly []cron.EntryID
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(s *Scheduler) { s.onError = h }
}

func New(opts ...Option) *Scheduler {
	logger := slogLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		now:   time.Now,
		ctx:   context.Background(),
		names: make(map[cron.EntryID]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Every registers job to run every interval.
func (s *Scheduler) Every(name string, interval, grace time.Duration, job Job) {
	sched := cron.Every(interval)
	id := s.cron.Schedule(sched, s.wrap(name, sched, grace, job))

	s.mu.Lock()
	s.names[id] = name
	s.mu.Unlock()
	slog.Info("registered job", "job", name, "interval", interval.String(), "grace", grace.String())
}

// Weekly registers job at slot in tz.
func (s *Scheduler) Weekly(name string, slot models.PostSlot, tz string, grace time.Duration, job Job) error {
	spec := CronSpec(slot, tz)
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("add weekly job %q: %w", spec, err)
	}
	id := s.cron.Schedule(sched, s.wrap(name, sched, grace, job))

	s.mu.Lock()
	s.names[id] = name
	s.weekly = append(s.weekly, id)
	s.mu.Unlock()
	slog.Info("registered job", "job", name, "slot", FormatSlot(slot), "timezone", tz)
	return nil
}

// ReplaceWeekly drops every weekly job and registers job once per slot.
func (s *Scheduler) ReplaceWeekly(name string, slots []models.PostSlot, tz string, grace time.Duration, job Job) error {
	s.mu.Lock()
	old := s.weekly
	s.weekly = nil
	for _, id := range old {
		delete(s.names, id)
	}
	s.mu.Unlock()

	for _, id := range old {
		s.cron.Remove(id)
	}
	for i, slot := range slots {
		if err := s.Weekly(fmt.Sprintf("%s_%d", name, i), slot, tz, grace, job); err != nil {
			return err
		}
	}
	return nil
}

// Jobs lists the registered jobs ordered by next run.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	names := make(map[cron.EntryID]string, len(s.names))
	for id, name := range s.names {
		names[id] = name
	}
	s.mu.Unlock()

	var jobs []JobInfo
	for _, e := range s.cron.Entries() {
		jobs = append(jobs, JobInfo{Name: names[e.ID], Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Next.Before(jobs[j].Next) })
	return jobs
}

// Run starts the driver and blocks until ctx is cancelled, then waits for
// running jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	slog.Info("job driver started", "jobs", len(s.cron.Entries()))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	slog.Info("job driver stopped")
	return nil
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) wrap(name string, sched cron.Schedule, grace time.Duration, job Job) cron.FuncJob {
	var running sync.Mutex
	guard := &misfireGuard{sched: sched}
	return func() {
		due := guard.due(s.now())
		running.Lock()
		defer running.Unlock()

		if late := s.now().Sub(due); grace > 0 && late > grace {
			slog.Warn("job missed its grace window, skipping", "job", name, "late", late.String())
			return
		}

		ctx := s.runContext()
		if ctx.Err() != nil {
			return
		}

		start := s.now()
		err := job(ctx)
		if err != nil {
			slog.Error("job failed", "job", name, "error", err)
			if s.onError != nil {
				s.onError(ctx, name, err)
			}
			return
		}
		slog.Debug("job finished", "job", name, "took", s.now().Sub(start).String())
	}
}

// misfireGuard tracks which activation of a schedule a firing belongs to,
// so lateness is measured from the planned instant rather than from the
// moment cron got around to starting the job.
type misfireGuard struct {
	sched cron.Schedule

	mu   sync.Mutex
	next time.Time
}

func (g *misfireGuard) due(fired time.Time) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	due := fired
	switch {
	case g.sched == nil:
	case isCalendar(g.sched):
		due = lastActivation(g.sched, fired)
	case !g.next.IsZero():
		due = g.next
	}
	if g.sched != nil {
		g.next = g.sched.Next(fired)
	}
	return due
}

func isCalendar(sched cron.Schedule) bool {
	_, ok := sched.(*cron.SpecSchedule)
	return ok
}

// lastActivation returns the latest activation of sched at or before t,
// looking back one week. It returns t when there is none.
func lastActivation(sched cron.Schedule, t time.Time) time.Time {
	last := t
	found := false
	for cur := t.Add(-7*24*time.Hour - time.Minute); ; {
		next := sched.Next(cur)
		if next.IsZero() || next.After(t) {
			break
		}
		last, found, cur = next, true, next
	}
	if !found {
		return t
	}
	return last
}

type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug(msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
