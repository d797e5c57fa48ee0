package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Task is a periodic maintenance job.
type Task func(ctx context.Context) error

// Scheduler runs named tasks on standard 5-field cron expressions.
// A run that is still going when the next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	tasks   map[string]cron.EntryID
	funcs   map[string]Task
	mu      sync.RWMutex
}

// NewScheduler creates a new scheduler. Each run gets at most timeout.
func NewScheduler(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
		tasks:   make(map[string]cron.EntryID),
		funcs:   make(map[string]Task),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Strs("tasks", s.Tasks()).Msg("Scheduler started")
}

// Stop cancels running tasks and waits for them to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

// AddTask registers (or replaces) a task under name.
func (s *Scheduler) AddTask(name, schedule string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.tasks[name]; exists {
		s.cron.Remove(entryID)
		delete(s.tasks, name)
	}

	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		s.run(name, task)
	}))

	entryID, err := s.cron.AddJob(schedule, job)
	if err != nil {
		return fmt.Errorf("failed to add cron job %s: %w", name, err)
	}

	s.tasks[name] = entryID
	s.funcs[name] = task
	log.Info().Str("task", name).Str("schedule", schedule).Msg("Scheduled task")
	return nil
}

// RemoveTask removes a task from the scheduler
func (s *Scheduler) RemoveTask(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.tasks[name]; exists {
		s.cron.Remove(entryID)
		delete(s.tasks, name)
		delete(s.funcs, name)
	}
}

// RunNow executes a registered task synchronously.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	task, ok := s.funcs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown task: %s", name)
	}
	return s.run(name, task)
}

// Tasks returns the registered task names, sorted
func (s *Scheduler) Tasks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next returns the next scheduled run of a task.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.RLock()
	entryID, ok := s.tasks[name]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(entryID).Next, true
}

func (s *Scheduler) run(name string, task Task) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := task(ctx)
	if err != nil {
		log.Error().Err(err).Str("task", name).Dur("duration", time.Since(start)).Msg("Scheduled task failed")
		return err
	}
	log.Debug().Str("task", name).Dur("duration", time.Since(start)).Msg("Scheduled task finished")
	return nil
}
