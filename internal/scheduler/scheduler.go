// Package scheduler manages the background jobs that keep the index
// fresh. Jobs are non-reentrant: a tick that fires while the previous
// run is still going is skipped, never queued.
package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus is one job's state as served on the status endpoint
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	Paused    bool       `json:"paused"`
	Running   bool       `json:"running"`
	Runs      int        `json:"runs"`
	Skipped   int        `json:"skipped"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
}

type entry struct {
	job      Job
	schedule string
	id       cron.EntryID

	paused  atomic.Bool
	running atomic.Bool

	mu        sync.Mutex // guards run bookkeeping
	runs      int
	skipped   int
	lastRun   time.Time
	lastError string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
	loc  *time.Location

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a scheduler running in the given timezone
func New(timezone string, log zerolog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", timezone, err)
	}

	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		log:     log.With().Str("component", "scheduler").Logger(),
		loc:     loc,
		entries: make(map[string]*entry),
	}, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Str("timezone", s.loc.String()).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddInterval registers a job firing every `every`
func (s *Scheduler) AddInterval(job Job, every time.Duration) error {
	return s.add(job, fmt.Sprintf("@every %s", every))
}

// AddDaily registers a job firing once a day at hour:minute in the
// scheduler's timezone
func (s *Scheduler) AddDaily(job Job, hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid daily time %02d:%02d", hour, minute)
	}
	return s.add(job, fmt.Sprintf("0 %d %d * * *", minute, hour))
}

// add registers the job, replacing any previous registration under the
// same name
func (s *Scheduler) add(job Job, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[job.Name()]; ok {
		s.cron.Remove(old.id)
		s.log.Info().Str("job", job.Name()).Msg("Replacing existing job registration")
	}

	e := &entry{job: job, schedule: schedule}
	id, err := s.cron.AddFunc(schedule, func() { s.runEntry(e) })
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.Name(), err)
	}

	e.id = id
	s.entries[job.Name()] = e

	s.log.Info().
		Str("job", job.Name()).
		Str("schedule", schedule).
		Msg("Job registered")
	return nil
}

// runEntry runs one guarded tick. Paused jobs do nothing; an overlapping
// tick is counted as skipped and dropped.
func (s *Scheduler) runEntry(e *entry) error {
	if e.paused.Load() {
		return nil
	}

	if !e.running.CompareAndSwap(false, true) {
		e.mu.Lock()
		e.skipped++
		e.mu.Unlock()
		s.log.Warn().Str("job", e.job.Name()).Msg("Previous run still in progress, skipping tick")
		return nil
	}
	defer e.running.Store(false)

	start := time.Now()
	s.log.Debug().Str("job", e.job.Name()).Msg("Running job")

	err := e.job.Run()

	e.mu.Lock()
	e.runs++
	e.lastRun = start
	if err != nil {
		e.lastError = err.Error()
	} else {
		e.lastError = ""
	}
	e.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Str("job", e.job.Name()).Msg("Job failed")
	} else {
		s.log.Debug().Str("job", e.job.Name()).Dur("duration", time.Since(start)).Msg("Job completed")
	}
	return err
}

// TriggerNow runs a job immediately, outside its schedule. An already
// running job is not doubled up.
func (s *Scheduler) TriggerNow(name string) error {
	e, err := s.entry(name)
	if err != nil {
		return err
	}
	if e.running.Load() {
		return fmt.Errorf("job %s is already running", name)
	}
	return s.runEntry(e)
}

// Pause suspends a job's scheduled runs
func (s *Scheduler) Pause(name string) error {
	e, err := s.entry(name)
	if err != nil {
		return err
	}
	e.paused.Store(true)
	s.log.Info().Str("job", name).Msg("Job paused")
	return nil
}

// Resume re-enables a paused job
func (s *Scheduler) Resume(name string) error {
	e, err := s.entry(name)
	if err != nil {
		return err
	}
	e.paused.Store(false)
	s.log.Info().Str("job", name).Msg("Job resumed")
	return nil
}

// List returns the status of all registered jobs, sorted by name
func (s *Scheduler) List() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.entries))
	for name, e := range s.entries {
		e.mu.Lock()
		st := JobStatus{
			Name:      name,
			Schedule:  e.schedule,
			Paused:    e.paused.Load(),
			Running:   e.running.Load(),
			Runs:      e.runs,
			Skipped:   e.skipped,
			LastError: e.lastError,
		}
		if !e.lastRun.IsZero() {
			lastRun := e.lastRun
			st.LastRun = &lastRun
		}
		e.mu.Unlock()

		if next := s.cron.Entry(e.id).Next; !next.IsZero() {
			st.NextRun = &next
		}
		out = append(out, st)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) entry(name string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("unknown job %s", name)
	}
	return e, nil
}
