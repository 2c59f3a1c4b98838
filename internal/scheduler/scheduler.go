// Package scheduler runs the recurring fetch and maintenance jobs on cron
// schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alirezadp10/market-trends/internal/config"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Description() string
	Execute(ctx context.Context, params map[string]string) error
}

// Scheduler manages scheduled jobs.
type Scheduler struct {
	cron      *cron.Cron
	schedules map[string]config.JobSchedule
	jobMap    map[string]Job
	entryIDs  map[string]cron.EntryID
	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a scheduler in the given timezone with the configured
// per-job schedules.
func New(timeZone string, schedules map[string]config.JobSchedule) *Scheduler {
	var cronOpts []cron.Option
	if timeZone != "" {
		loc, err := time.LoadLocation(timeZone)
		if err == nil {
			cronOpts = append(cronOpts, cron.WithLocation(loc))
		} else {
			log.Printf("Error loading timezone %s: %v, using local time", timeZone, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:      cron.New(cronOpts...),
		schedules: schedules,
		jobMap:    make(map[string]Job),
		entryIDs:  make(map[string]cron.EntryID),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// RegisterJob registers a job with the scheduler.
func (s *Scheduler) RegisterJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobMap[name]; exists {
		return fmt.Errorf("job with name '%s' already registered", name)
	}
	s.jobMap[name] = job
	return nil
}

// Start schedules every registered job that has an enabled schedule and
// starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	for name, job := range s.jobMap {
		schedule, ok := s.schedules[name]
		if !ok {
			log.Printf("No schedule configured for job %s, skipping", name)
			continue
		}
		if !schedule.Enabled {
			log.Printf("Job %s is disabled, skipping", name)
			continue
		}

		job := job
		params := schedule.Parameters
		entryID, err := s.cron.AddFunc(schedule.Cron, func() {
			s.runJob(job, params)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", name, err)
		}
		s.entryIDs[name] = entryID
		log.Printf("Scheduled job %s with cron %q", name, schedule.Cron)
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Scheduler started with %d jobs", len(s.entryIDs))
	return nil
}

// Stop stops the cron loop and cancels running jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	s.cron.Stop()
	s.cancel()
	s.isRunning = false
	log.Printf("Scheduler stopped")
}

// RunJobNow executes a registered job immediately.
func (s *Scheduler) RunJobNow(name string, params map[string]string) error {
	s.mu.Lock()
	job, ok := s.jobMap[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("no job registered with name '%s'", name)
	}
	s.runJob(job, params)
	return nil
}

// JobNames returns the registered job names.
func (s *Scheduler) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobMap))
	for name := range s.jobMap {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) runJob(job Job, params map[string]string) {
	start := time.Now()
	log.Printf("Running job %s", job.Name())
	if err := job.Execute(s.ctx, params); err != nil {
		log.Printf("Job %s failed after %v: %v", job.Name(), time.Since(start), err)
		return
	}
	log.Printf("Job %s completed in %v", job.Name(), time.Since(start))
}
