package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler fires the periodic publish trigger.
type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]cron.EntryID
	timezone *time.Location
}

// New creates a new scheduler with the given timezone
func New(timezone string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
	}, nil
}

// AddJob adds a job with a cron schedule.
// The job itself must not block; triggers hand work to the runner.
func (s *Scheduler) AddJob(name, schedule string, job func()) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		log.Printf("[scheduler] Firing job: %s", name)
		job()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	log.Printf("[scheduler] Added job: %s (schedule: %s)", name, schedule)

	return nil
}

// AddIntervalJob adds a job firing every intervalHours hours.
func (s *Scheduler) AddIntervalJob(name string, intervalHours int, job func()) error {
	schedule := fmt.Sprintf("0 */%d * * *", intervalHours)
	return s.AddJob(name, schedule, job)
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	log.Println("[scheduler] Starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler and returns a context that is done once
// running jobs have finished.
func (s *Scheduler) Stop() {
	log.Println("[scheduler] Stopping scheduler")
	<-s.cron.Stop().Done()
}

// NextRun returns when the named job fires next, for status logging.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	entryID, ok := s.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == entryID {
			return entry.Next, true
		}
	}
	return time.Time{}, false
}
