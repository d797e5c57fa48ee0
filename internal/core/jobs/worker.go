package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Worker processes jobs from a queue
type Worker struct {
	queue    JobQueue
	config   WorkerConfig
	handlers map[string]JobHandler
	mu       sync.RWMutex
	stopped  bool
	started  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWorker creates a new job worker
func NewWorker(queue JobQueue, config WorkerConfig) *Worker {
	defaults := DefaultWorkerConfig()
	if config.Queue == "" {
		config.Queue = defaults.Queue
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &Worker{
		queue:    queue,
		config:   config,
		handlers: make(map[string]JobHandler),
	}
}

// RegisterHandler registers a job handler for a specific job type
func (w *Worker) RegisterHandler(handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[handler.GetType()] = handler
	log.Info().Str("type", handler.GetType()).Str("queue", w.config.Queue).Msg("Registered job handler")
}

// Start starts the worker pool
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return fmt.Errorf("worker is stopped, cannot restart")
	}
	if w.started {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}
	w.started = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	log.Info().Str("queue", w.config.Queue).Int("concurrency", w.config.Concurrency).Msg("Starting job worker")

	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.runWorker(ctx, i+1)
	}

	return nil
}

// Stop stops polling and waits for in-flight jobs to finish
func (w *Worker) Stop() {
	w.mu.Lock()
	w.stopped = true
	cancel := w.cancel
	w.mu.Unlock()

	log.Info().Str("queue", w.config.Queue).Msg("Stopping job worker")
	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
	log.Info().Str("queue", w.config.Queue).Msg("Job worker stopped")
}

// Wait waits for all workers to finish
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) runWorker(ctx context.Context, workerID int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			// Drain the queue before waiting for the next tick.
			for {
				err := w.processNextJob(ctx, workerID)
				if err == nil {
					continue
				}
				if !errors.Is(err, ErrNoJobsAvailable) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", workerID).Msg("Job worker error")
				}
				break
			}
		}
	}
}

// processNextJob processes the next available job
func (w *Worker) processNextJob(ctx context.Context, workerID int) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	job, err := w.queue.Dequeue(ctx, w.config.Queue)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrNoJobsAvailable
	}

	logger := log.With().
		Int("worker", workerID).
		Str("job_id", job.ID.String()).
		Str("type", job.Type).
		Int("attempt", job.Attempts).
		Logger()

	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	if !exists {
		logger.Error().Msg("No handler registered for job type")
		if _, err := w.queue.MarkFailed(ctx, job, Permanent(fmt.Errorf("no handler registered for job type: %s", job.Type))); err != nil {
			logger.Warn().Err(err).Msg("Failed to mark job as failed")
		}
		return nil
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	startTime := time.Now()
	result, err := handler.Handle(jobCtx, job)
	duration := time.Since(startTime)

	// Results are written with a fresh context so shutdown does not leave
	// the job stuck in processing.
	markCtx, markCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer markCancel()

	if err != nil {
		final, markErr := w.queue.MarkFailed(markCtx, job, err)
		if markErr != nil {
			logger.Warn().Err(markErr).Msg("Failed to mark job as failed")
		}
		logger.Error().Err(err).Dur("duration", duration).Bool("final", final).Msg("Job failed")
		if final && markErr == nil {
			if fh, ok := handler.(FailureHandler); ok {
				fh.OnFinalFailure(markCtx, job, err)
			}
		}
		return nil
	}

	if err := w.queue.MarkCompleted(markCtx, job.ID, result); err != nil {
		logger.Warn().Err(err).Msg("Failed to mark job as completed")
	}
	logger.Info().Dur("duration", duration).Msg("Job completed")

	return nil
}

// FailureHandler returns the final-failure hook registered for jobType.
func (w *Worker) FailureHandler(jobType string) (FailureHandler, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	fh, ok := w.handlers[jobType].(FailureHandler)
	return fh, ok
}

// WorkerPool manages multiple workers across different queues
type WorkerPool struct {
	workers []*Worker
	mu      sync.RWMutex
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool() *WorkerPool {
	return &WorkerPool{
		workers: make([]*Worker, 0),
	}
}

// AddWorker adds a worker to the pool
func (p *WorkerPool) AddWorker(worker *Worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workers = append(p.workers, worker)
}

// Start starts all workers in the pool
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, worker := range p.workers {
		if err := worker.Start(ctx); err != nil {
			return fmt.Errorf("failed to start worker: %w", err)
		}
	}

	return nil
}

// FailureHandler finds the final-failure hook for jobType on any worker.
func (p *WorkerPool) FailureHandler(jobType string) (FailureHandler, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, worker := range p.workers {
		if fh, ok := worker.FailureHandler(jobType); ok {
			return fh, true
		}
	}
	return nil, false
}

// Stop stops all workers in the pool
func (p *WorkerPool) Stop() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, worker := range p.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Stop()
		}(worker)
	}

	wg.Wait()
}
